package cachestorage

import (
	"context"
	"testing"
)

func TestStoreOptionsMutateConfig(t *testing.T) {
	var cfg StoreConfig
	client := newStubRedisClient()
	kv := newStubNATSKeyValue("bucket")
	dyn := newDynStub()
	for _, opt := range []StoreOption{
		WithPrefix("svc"),
		WithQuota(1024),
		WithCompression(CompressionGzip),
		WithMaxValueBytes(64),
		WithFileDir("/tmp/x"),
		WithRedisClient(client),
		WithSQL("sqlite", "file.db", "tbl"),
		WithNATSKeyValue(kv),
		WithDynamoClient(dyn),
		WithDynamoEndpoint("eu-west-1", "http://localhost:8000"),
		WithDynamoTable("dyn"),
	} {
		cfg = opt(cfg)
	}

	if cfg.Prefix != "svc" || cfg.QuotaBytes != 1024 || cfg.Compression != CompressionGzip || cfg.MaxValueBytes != 64 {
		t.Fatalf("base options did not apply: %+v", cfg.BaseConfig)
	}
	if cfg.FileDir != "/tmp/x" || cfg.RedisClient != client || cfg.NATSKeyValue != kv || cfg.DynamoClient != dyn {
		t.Fatalf("backend options did not apply: %+v", cfg)
	}
	if cfg.SQLDriverName != "sqlite" || cfg.SQLDSN != "file.db" || cfg.SQLTable != "tbl" {
		t.Fatalf("sql options did not apply: %+v", cfg)
	}
	if cfg.DynamoRegion != "eu-west-1" || cfg.DynamoEndpoint != "http://localhost:8000" || cfg.DynamoTable != "dyn" {
		t.Fatalf("dynamo options did not apply: %+v", cfg)
	}
}

func TestConvenienceConstructorsSelectDriver(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		store Store
		want  Driver
	}{
		{NewMemoryStore(ctx), DriverMemory},
		{NewFileStore(ctx, t.TempDir()), DriverFile},
		{NewRedisStore(ctx, newStubRedisClient()), DriverRedis},
		{NewNATSStore(ctx, newStubNATSKeyValue("b")), DriverNATS},
		{NewDynamoStore(ctx, WithDynamoClient(newDynStub())), DriverDynamo},
		{NewStoreWith(ctx, DriverNull), DriverNull},
	}
	for _, tc := range cases {
		if got := tc.store.Driver(); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
		if err := tc.store.Ready(ctx); err != nil {
			t.Fatalf("%s ready failed: %v", tc.want, err)
		}
	}
}
