package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/agessh"
)

// parseRecipientString turns one recipient line into an age recipient.
// Native age public keys and SSH public keys are both accepted.
func parseRecipientString(s string) (age.Recipient, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "age1"):
		return age.ParseX25519Recipient(s)
	case strings.HasPrefix(s, "ssh-"):
		return agessh.ParseRecipient(s)
	default:
		return nil, fmt.Errorf("unrecognized recipient %q (expected age1... or ssh-...)", s)
	}
}

// readRecipientFile loads recipients from a file, one per line. Blank lines
// and # comments are skipped, matching the format age itself uses.
func readRecipientFile(path string) ([]age.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var recipients []age.Recipient
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := parseRecipientString(line)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, nil
}

// collectRecipients resolves the configured recipients. When none are
// configured, the operator is prompted for a passphrase and scrypt-based
// encryption is used instead.
func (o *Orchestrator) collectRecipients(ctx context.Context) ([]age.Recipient, error) {
	var recipients []age.Recipient

	for _, s := range o.cfg.AgeRecipients {
		r, err := parseRecipientString(s)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}

	if o.cfg.AgeRecipientFile != "" {
		fromFile, err := readRecipientFile(o.cfg.AgeRecipientFile)
		if err != nil {
			return nil, fmt.Errorf("reading recipient file %s: %w", o.cfg.AgeRecipientFile, err)
		}
		recipients = append(recipients, fromFile...)
	}

	if len(recipients) > 0 {
		return recipients, nil
	}

	passphrase, err := o.ui.ReadPassphrase(ctx, "Enter passphrase for the snapshot", true)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, fmt.Errorf("empty passphrase")
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, err
	}
	return []age.Recipient{r}, nil
}

// encryptSnapshot wraps the encoded document in an age stream.
func (o *Orchestrator) encryptSnapshot(ctx context.Context, data []byte) ([]byte, error) {
	recipients, err := o.collectRecipients(ctx)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return nil, &EncryptionError{Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &EncryptionError{Err: err}
	}
	return buf.Bytes(), nil
}

// decryptSnapshot opens an age stream using the configured identity file, or
// a passphrase prompt when none is configured.
func (o *Orchestrator) decryptSnapshot(ctx context.Context, data []byte) ([]byte, error) {
	identities, err := o.collectIdentities(ctx)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}

	r, err := age.Decrypt(bytes.NewReader(data), identities...)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, &EncryptionError{Err: err}
	}
	return plaintext, nil
}

func (o *Orchestrator) collectIdentities(ctx context.Context) ([]age.Identity, error) {
	if o.cfg.AgeIdentityFile != "" {
		f, err := os.Open(o.cfg.AgeIdentityFile)
		if err != nil {
			return nil, fmt.Errorf("opening identity file %s: %w", o.cfg.AgeIdentityFile, err)
		}
		defer f.Close()

		identities, err := age.ParseIdentities(f)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", o.cfg.AgeIdentityFile, err)
		}
		return identities, nil
	}

	passphrase, err := o.ui.ReadPassphrase(ctx, "Enter passphrase for the snapshot", false)
	if err != nil {
		return nil, err
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, err
	}
	return []age.Identity{identity}, nil
}
