package encryption

import (
	"bytes"
	"fmt"
	"io"

	"ilmhub/internal/ilm"
)

// fixtureHeader marks output of FixtureEncryptor so sealed archives never
// equal their plaintext and hash differently.
var fixtureHeader = []byte("ILMENC\x00\x01")

// FixtureEncryptor is a deterministic, reversible encryptor for tests. It
// prepends fixtureHeader and needs no keys.
type FixtureEncryptor struct {
	setupCalled bool
}

var _ ilm.Encryptor = (*FixtureEncryptor)(nil)

func NewFixtureEncryptor() *FixtureEncryptor {
	return &FixtureEncryptor{}
}

func (e *FixtureEncryptor) Setup(passphrase string) error {
	e.setupCalled = true
	return nil
}

func (e *FixtureEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(fixtureHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *FixtureEncryptor) Unlock(passphrase string) (ilm.DecryptionContext, error) {
	return fixtureDecryptor{}, nil
}

func (e *FixtureEncryptor) IsConfigured() bool { return true }

type fixtureDecryptor struct{}

func (fixtureDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(fixtureHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, fixtureHeader) {
		return fmt.Errorf("%w: not a fixture archive", ilm.ErrValidationFailure)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// PlaintextEncryptor stores archives unencrypted. Used when an operator
// turns encryption off for a vault they already trust.
type PlaintextEncryptor struct{}

var _ ilm.Encryptor = PlaintextEncryptor{}

func (PlaintextEncryptor) Setup(string) error { return nil }

func (PlaintextEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlaintextEncryptor) Unlock(string) (ilm.DecryptionContext, error) {
	return PlaintextEncryptor{}, nil
}

func (PlaintextEncryptor) IsConfigured() bool { return true }

// Decrypt copies r to w unchanged.
func (PlaintextEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	return PlaintextEncryptor{}.Encrypt(r, w)
}
