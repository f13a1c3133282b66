//go:build integration

package member

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"giftexchange/pkg/testutil/containers"
)

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.NewPostgresContainer(t)
	suite.Run(t, &MemberStoreSuite{newStore: func(t *testing.T) memberStore {
		if err := pg.TruncateTables(context.Background(), "members"); err != nil {
			t.Fatalf("truncate members: %v", err)
		}
		return NewPostgres(pg.DB)
	}})
}
