package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStream keeps voice notes in a NATS JetStream object store bucket.
type JetStream struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
}

// OpenJetStream connects to NATS and opens bucket, creating it if needed.
func OpenJetStream(ctx context.Context, natsURL, bucket string) (*JetStream, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	store, err := js.ObjectStore(ctx, bucket)
	if err != nil {
		store, err = js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
			Bucket:      bucket,
			Description: "Voice note audio",
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create object store bucket: %w", err)
		}
	}
	return &JetStream{conn: conn, store: store}, nil
}

func (j *JetStream) Exists(ctx context.Context, ref string) (bool, error) {
	name, err := Name(ref)
	if err != nil {
		return false, err
	}
	info, err := j.store.GetInfo(ctx, name)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", name, err)
	}
	return !info.Deleted, nil
}

func (j *JetStream) Remove(ctx context.Context, ref string) error {
	name, err := Name(ref)
	if err != nil {
		return err
	}
	if err := j.store.Delete(ctx, name); err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

func (j *JetStream) Close() {
	j.conn.Close()
}
