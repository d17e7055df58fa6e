// Package store persists minted session credentials for the CLI so
// status/export/daemon work across invocations. Credential fields are
// encrypted at rest; identity metadata and the expiration are stored in
// the clear so expiry checks don't need the secret.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

var storePath = filepath.Join(os.Getenv("HOME"), ".fedctl", "sessions.json")

// Record is one persisted session.
type Record struct {
	Identity     string
	RoleARN      string
	Region       string
	SessionName  string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Expiration   time.Time
}

// Expired reports whether the record's credentials have lapsed.
func (r *Record) Expired() bool {
	return !time.Now().Before(r.Expiration)
}

// storedRecord is the on-disk shape; credential fields hold ciphertext.
type storedRecord struct {
	RoleARN      string    `json:"role_arn"`
	Region       string    `json:"region"`
	SessionName  string    `json:"session_name"`
	AccessKey    string    `json:"access_key"`
	SecretKey    string    `json:"secret_key"`
	SessionToken string    `json:"session_token"`
	Expiration   time.Time `json:"expiration"`
}

func readAll() (map[string]storedRecord, error) {
	data := make(map[string]storedRecord)
	b, err := os.ReadFile(storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session store: %w", err)
	}
	return data, nil
}

func writeAll(data map[string]storedRecord) error {
	if len(data) == 0 {
		err := os.Remove(storePath)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(storePath), 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(storePath, b, 0600)
}

// Save encrypts and stores a session record, replacing any previous
// record for the same identity.
func Save(rec *Record, secret string) error {
	akEnc, err := encrypt(secret, rec.AccessKey)
	if err != nil {
		return err
	}
	skEnc, err := encrypt(secret, rec.SecretKey)
	if err != nil {
		return err
	}
	stEnc, err := encrypt(secret, rec.SessionToken)
	if err != nil {
		return err
	}

	data, err := readAll()
	if err != nil {
		return err
	}
	data[rec.Identity] = storedRecord{
		RoleARN:      rec.RoleARN,
		Region:       rec.Region,
		SessionName:  rec.SessionName,
		AccessKey:    akEnc,
		SecretKey:    skEnc,
		SessionToken: stEnc,
		Expiration:   rec.Expiration.UTC(),
	}
	return writeAll(data)
}

func decryptRecord(identity string, sr storedRecord, secret string) (*Record, error) {
	ak, err := decrypt(secret, sr.AccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session for '%s' (wrong secret?): %w", identity, err)
	}
	sk, err := decrypt(secret, sr.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session for '%s' (wrong secret?): %w", identity, err)
	}
	st, err := decrypt(secret, sr.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session for '%s' (wrong secret?): %w", identity, err)
	}
	return &Record{
		Identity:     identity,
		RoleARN:      sr.RoleARN,
		Region:       sr.Region,
		SessionName:  sr.SessionName,
		AccessKey:    ak,
		SecretKey:    sk,
		SessionToken: st,
		Expiration:   sr.Expiration,
	}, nil
}

// Load decrypts the session record for an identity.
func Load(identity, secret string) (*Record, error) {
	data, err := readAll()
	if err != nil {
		return nil, err
	}
	sr, ok := data[identity]
	if !ok {
		return nil, fmt.Errorf("no stored session for identity '%s'", identity)
	}
	return decryptRecord(identity, sr, secret)
}

// List decrypts all stored session records, sorted by identity.
func List(secret string) ([]*Record, error) {
	data, err := readAll()
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(data))
	for identity, sr := range data {
		rec, err := decryptRecord(identity, sr, secret)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Identity < records[j].Identity })
	return records, nil
}

// Remove deletes the stored session for an identity.
func Remove(identity string) error {
	data, err := readAll()
	if err != nil {
		return err
	}
	if _, ok := data[identity]; !ok {
		return fmt.Errorf("no stored session for identity '%s'", identity)
	}
	delete(data, identity)
	return writeAll(data)
}

// Clear removes all stored sessions.
func Clear() error {
	err := os.Remove(storePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
