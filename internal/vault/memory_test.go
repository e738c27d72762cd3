package vault

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ilmhub/internal/ilm"
)

func TestMemoryVault_PutArchive(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		data    string
		size    int64
		wantErr bool
	}{
		{
			name: "stores archive",
			key:  "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			data: "test",
			size: 4,
		},
		{
			name: "empty archive",
			key:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			data: "",
			size: 0,
		},
		{
			name:    "size mismatch",
			key:     "abc",
			data:    "hello",
			size:    10,
			wantErr: true,
		},
		{
			name:    "key with path separator",
			key:     "../escape",
			data:    "x",
			size:    1,
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			data:    "x",
			size:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMemoryVault("test")
			err := v.PutArchive(tt.key, strings.NewReader(tt.data), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutArchive() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			var buf bytes.Buffer
			if err := v.GetArchive(tt.key, &buf); err != nil {
				t.Fatalf("GetArchive() error = %v", err)
			}
			if buf.String() != tt.data {
				t.Errorf("GetArchive() = %q, want %q", buf.String(), tt.data)
			}
		})
	}
}

func TestMemoryVault_GetArchive_NotFound(t *testing.T) {
	v := NewMemoryVault("test")

	err := v.GetArchive("missing", &bytes.Buffer{})
	if !errors.Is(err, ilm.ErrNotFound) {
		t.Errorf("GetArchive() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryVault_Snapshots(t *testing.T) {
	v := NewMemoryVault("test")

	t.Run("version is zero before first snapshot", func(t *testing.T) {
		version, err := v.GetSnapshotVersion("host-1")
		if err != nil {
			t.Fatalf("GetSnapshotVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("GetSnapshotVersion() = %d, want 0", version)
		}
	})

	t.Run("missing snapshot is not found", func(t *testing.T) {
		err := v.GetSnapshot("host-1", &bytes.Buffer{})
		if !errors.Is(err, ilm.ErrNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("latest snapshot replaces previous", func(t *testing.T) {
		if err := v.PutSnapshot("host-1", strings.NewReader("first"), 5, 1); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}
		if err := v.PutSnapshot("host-1", strings.NewReader("second"), 6, 2); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetSnapshot("host-1", &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if buf.String() != "second" {
			t.Errorf("GetSnapshot() = %q, want %q", buf.String(), "second")
		}

		version, err := v.GetSnapshotVersion("host-1")
		if err != nil {
			t.Fatalf("GetSnapshotVersion() error = %v", err)
		}
		if version != 2 {
			t.Errorf("GetSnapshotVersion() = %d, want 2", version)
		}
	})

	t.Run("hosts are independent", func(t *testing.T) {
		version, err := v.GetSnapshotVersion("host-2")
		if err != nil {
			t.Fatalf("GetSnapshotVersion() error = %v", err)
		}
		if version != 0 {
			t.Errorf("GetSnapshotVersion(host-2) = %d, want 0", version)
		}
	})

	t.Run("size mismatch leaves previous snapshot", func(t *testing.T) {
		if err := v.PutSnapshot("host-1", strings.NewReader("short"), 99, 3); err == nil {
			t.Fatal("PutSnapshot() expected size mismatch error")
		}
		version, _ := v.GetSnapshotVersion("host-1")
		if version != 2 {
			t.Errorf("GetSnapshotVersion() = %d, want 2", version)
		}
	})
}
