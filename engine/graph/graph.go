package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/medsift/adr-engine/engine/domain"
)

// Store provides graph operations over the extraction results.
type Store struct {
	driver neo4j.DriverWithContext
}

// New creates a Store on top of an established driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// SaveExtraction merges a drug node and its side-effect edge from an
// extraction record. Records without an identified drug are skipped; the
// fallback's "Unknown" drug carries no graph signal.
func (s *Store) SaveExtraction(ctx context.Context, rec domain.Record) error {
	drug := strings.TrimSpace(rec[domain.FieldDrugName])
	if drug == "" || drug == "Unknown" {
		return nil
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (d:Drug {name: $drug})
MERGE (e:SideEffect {description: $effects})
MERGE (d)-[r:HAS_EFFECT]->(e)
SET r.severity = $severity, r.adverse = $adverse`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"drug":     drug,
		"effects":  effectKey(rec[domain.FieldSideEffects]),
		"severity": rec[domain.FieldSeverity],
		"adverse":  rec[domain.FieldAdverse],
	})
	return err
}

// EffectsByDrug returns every recorded side effect for a drug name.
func (s *Store) EffectsByDrug(ctx context.Context, drug string) ([]Effect, error) {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (d:Drug {name: $drug})-[r:HAS_EFFECT]->(e:SideEffect)
RETURN d.name AS drug, e.description AS effects, r.severity AS severity, r.adverse AS adverse`
	result, err := sess.Run(ctx, cypher, map[string]any{"drug": drug})
	if err != nil {
		return nil, err
	}

	var effects []Effect
	for result.Next(ctx) {
		rec := result.Record()
		effects = append(effects, Effect{
			Drug:          strField(rec, "drug"),
			SideEffects:   strField(rec, "effects"),
			Severity:      strField(rec, "severity"),
			AdverseEffect: strField(rec, "adverse"),
		})
	}
	return effects, result.Err()
}

func strField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// effectKey normalizes a side-effect description for node identity so case
// and spacing variants merge into one node.
func effectKey(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "none"
	}
	return strings.Join(strings.Fields(s), " ")
}
