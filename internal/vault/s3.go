package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ilmhub/internal/ilm"
)

const versionMetadataKey = "ilm-version"

// S3Options configures an S3Vault. Empty credentials fall back to the
// default AWS credential chain; Endpoint selects an S3 compatible service.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Vault stores archives and snapshots as objects:
//
//	<prefix>archives/<key>
//	<prefix>snapshots/<hostID>.db   (version kept in object metadata)
type S3Vault struct {
	name       string
	bucket     string
	prefix     string
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Vault loads AWS configuration and creates the client. It does not
// contact the service; call ValidateSetup for that.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:       name,
		bucket:     opts.Bucket,
		prefix:     opts.Prefix,
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

func (v *S3Vault) archiveKey(key string) string {
	return path.Join(v.prefix, "archives", key)
}

func (v *S3Vault) snapshotKey(hostID string) string {
	return path.Join(v.prefix, "snapshots", hostID+".db")
}

// countingReader counts bytes read so uploads can be checked against the
// declared size.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (v *S3Vault) upload(ctx context.Context, key string, r io.Reader, size int64, metadata map[string]string) error {
	cr := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     cr,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if cr.n != size {
		v.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(v.bucket), Key: aws.String(key)})
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, cr.n)
	}
	return nil
}

func (v *S3Vault) download(ctx context.Context, key string, w io.Writer, what string) error {
	buf := manager.NewWriteAtBuffer(nil)
	if _, err := v.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ilm.ErrNotFound, what)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// PutArchive uploads an archive. Re-uploading a key overwrites identical bytes.
func (v *S3Vault) PutArchive(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return v.upload(context.Background(), v.archiveKey(key), r, size, nil)
}

// GetArchive writes the archive stored under key to w.
func (v *S3Vault) GetArchive(key string, w io.Writer) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return v.download(context.Background(), v.archiveKey(key), w, "archive "+key)
}

// PutSnapshot uploads a host snapshot with its version in object metadata.
func (v *S3Vault) PutSnapshot(hostID string, r io.Reader, size int64, version int64) error {
	return v.upload(context.Background(), v.snapshotKey(hostID), r, size,
		map[string]string{versionMetadataKey: strconv.FormatInt(version, 10)})
}

// GetSnapshot writes the host's snapshot to w.
func (v *S3Vault) GetSnapshot(hostID string, w io.Writer) error {
	return v.download(context.Background(), v.snapshotKey(hostID), w, "snapshot for host "+hostID)
}

// GetSnapshotVersion reads the version from the snapshot's metadata. It
// returns 0 when the host has no snapshot.
func (v *S3Vault) GetSnapshotVersion(hostID string) (int64, error) {
	out, err := v.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.snapshotKey(hostID)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading snapshot metadata: %w", err)
	}

	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	if _, err := v.client.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

var _ ilm.Vault = (*S3Vault)(nil)
