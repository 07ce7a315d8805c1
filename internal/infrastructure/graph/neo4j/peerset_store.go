package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// PeerSetStore resolves configured peer sets from the company graph.
// Membership is curated upstream; this adapter only reads it.
type PeerSetStore struct {
	driver neo4j.DriverWithContext
}

func New(uri, user, password string) (*PeerSetStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &PeerSetStore{driver: driver}, nil
}

func (s *PeerSetStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *PeerSetStore) ResolvePeerSet(ctx context.Context, peerSetID string) ([]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, `
MATCH (p:PeerSet {id: $peer_set_id})-[:INCLUDES]->(c:Company)
RETURN c.id AS company_id
ORDER BY company_id
`, map[string]any{"peer_set_id": peerSetID}, neo4j.EagerResultTransformer)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "resolve peer set", err)
	}

	companies := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		value, ok := record.Get("company_id")
		if !ok {
			continue
		}
		companyID, ok := value.(string)
		if !ok || companyID == "" {
			continue
		}
		companies = append(companies, companyID)
	}
	return companies, nil
}
