package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/schoolnotes/gradesync/core/portal"
	"github.com/schoolnotes/gradesync/storage/state"
)

const nonceSize = 24

var errBadPassphrase = errors.New("decryption failed: wrong passphrase or corrupted file")

// exportSession writes the persisted portal session to an encrypted file so
// it can be moved to another machine. Cookies are credentials; they never
// touch disk outside the store unencrypted.
func (cli *commandLine) exportSession(path string, passphrase []byte) error {
	data, err := cli.store.Get(state.KeySession)
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	sealed, err := encrypt(data, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		return errors.Wrap(err, "writing session file")
	}
	_, _ = fmt.Fprintf(cli.out, "session exported to %s\n", path)
	return nil
}

func (cli *commandLine) importSession(path string, passphrase []byte) error {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading session file")
	}
	data, err := decrypt(sealed, passphrase)
	if err != nil {
		return err
	}

	// reject garbage before it lands in the store
	var snap portal.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errors.Wrap(err, "decoding session")
	}
	if len(snap.Cookies) == 0 {
		return errors.New("session file contains no cookies")
	}

	if err := cli.store.Set(state.KeySession, data); err != nil {
		return errors.Wrap(err, "saving session")
	}
	_, _ = fmt.Fprintf(cli.out, "session imported: %d cookies\n", len(snap.Cookies))
	return nil
}

func encrypt(data, passphrase []byte) ([]byte, error) {
	key := sha256.Sum256(passphrase)
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}
	return secretbox.Seal(nonce[:], data, &nonce, &key), nil
}

func decrypt(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, errBadPassphrase
	}
	key := sha256.Sum256(passphrase)
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	data, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &key)
	if !ok {
		return nil, errBadPassphrase
	}
	return data, nil
}
