package store

import (
	"context"
	"strings"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore persists preferences in a Valkey-compatible database.
type ValkeyStore struct {
	client    valkey.Client
	namespace string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, namespace string) *ValkeyStore {
	return &ValkeyStore{client: client, namespace: namespace}
}

// DialValkey builds a client from a plain address or a valkey:// URL.
func DialValkey(addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return nil, err
	}
	return valkey.NewClient(opt)
}

func (s *ValkeyStore) GetString(ctx context.Context, key string) (string, error) {
	cmd := s.client.B().Get().Key(qualify(s.namespace, key)).Build()
	v, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

// PutStrings sends every SET in one MULTI/EXEC so both coordinates land together.
func (s *ValkeyStore) PutStrings(ctx context.Context, values map[string]string) error {
	cmds := make(valkey.Commands, 0, len(values)+2)
	cmds = append(cmds, s.client.B().Multi().Build())
	for k, v := range values {
		cmds = append(cmds, s.client.B().Set().Key(qualify(s.namespace, k)).Value(v).Build())
	}
	cmds = append(cmds, s.client.B().Exec().Build())

	for _, resp := range s.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (s *ValkeyStore) Close() error {
	s.client.Close()
	return nil
}
