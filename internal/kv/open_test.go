package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/imrishuroy/pizzafly-storefront/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.Config{StoreBackend: config.BackendMemory}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("expected *Memory, got %T", s)
	}
}

func TestOpen_DynamoNeedsClient(t *testing.T) {
	if _, _, err := Open(context.Background(), config.Config{StoreBackend: config.BackendDynamoDB}, nil); err == nil {
		t.Fatalf("expected error without a client")
	}
	s, _, err := Open(context.Background(), config.Config{StoreBackend: config.BackendDynamoDB, StorageTable: "t"}, newMockDynamo())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*Dynamo); !ok {
		t.Fatalf("expected *Dynamo, got %T", s)
	}
}

func TestOpen_Unknown(t *testing.T) {
	_, _, err := Open(context.Background(), config.Config{StoreBackend: "sqlite"}, nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
}
