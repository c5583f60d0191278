package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ppiankov/claimsift/internal/model"
	"github.com/ppiankov/claimsift/internal/store"
)

const (
	tableSets     = "processed_claim_sets"
	tableClaims   = "processed_claims"
	tableEvidence = "processed_claim_evidence"
	tableLinks    = "processed_claim_drug_links"

	termKindDrug  = "drug"
	termKindClass = "drug_class"
)

// Store persists claim sets in PostgreSQL.
type Store struct {
	db    DB
	tx    *TxManager
	sb    squirrel.StatementBuilderType
	pool  *pgxpool.Pool
	newID func() uuid.UUID
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates a Store over db. The caller owns db.
func New(db DB) *Store {
	return &Store{
		db:    db,
		tx:    NewTxManager(db),
		sb:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		newID: uuid.New,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Open connects to the database described by cfg.
func Open(ctx context.Context, cfg model.StoreConfig) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := New(pool)
	s.pool = pool
	return s, nil
}

// Close releases the pool opened by Open.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ReplaceClaimSet deletes whatever is stored under the set's mesh signature
// and inserts the new set with its claims, evidence and drug links in one
// transaction.
func (s *Store) ReplaceClaimSet(ctx context.Context, set *model.ClaimSet) error {
	if err := store.Validate(set); err != nil {
		return err
	}
	setID, err := uuid.Parse(set.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q: %v", store.ErrInvalidClaimSet, set.ID, err)
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		q := QuerierFromCtx(ctx, s.db)
		sig := set.MeshSignature

		query, args, err := s.sb.Delete(tableSets).
			Where(squirrel.Eq{"mesh_signature": sig}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return mapError(err, "claim set", sig)
		}

		created := set.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		query, args, err = s.sb.Insert(tableSets).
			Columns("id", "mesh_signature", "condition_label", "mesh_terms", "created_at", "updated_at").
			Values(setID, sig, set.ConditionLabel, nonNil(set.MeshTerms), created, s.now()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return mapError(err, "claim set", sig)
		}

		for i, c := range set.Claims {
			if err := s.insertClaim(ctx, q, setID, i, c); err != nil {
				return mapError(err, "claim set", sig)
			}
		}
		return nil
	})
}

func (s *Store) insertClaim(ctx context.Context, q Querier, setID uuid.UUID, position int, c model.AggregatedClaim) error {
	claimID := s.newID()

	query, args, err := s.sb.Insert(tableClaims).
		Columns("id", "claim_set_id", "position", "claim_id", "classification", "summary", "confidence",
			"drugs", "drug_classes", "source_claim_ids", "articles", "severe_reaction", "severe_reaction_terms").
		Values(claimID, setID, position, c.ClaimID, string(c.Classification), c.Summary, string(c.Confidence),
			nonNil(c.Drugs), nonNil(c.DrugClasses), nonNil(c.SourceClaimIDs), nonNil(c.Articles),
			c.SevereReaction, nonNil(c.SevereReactionTerms)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build claim insert: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert claim %s: %w", c.ClaimID, err)
	}

	if len(c.Evidence) > 0 {
		ins := s.sb.Insert(tableEvidence).
			Columns("claim_id", "position", "snippet_id", "pmid", "article_title", "citation_url", "key_points", "notes")
		for i, e := range c.Evidence {
			ins = ins.Values(claimID, i, e.SnippetID, e.PMID, e.ArticleTitle, model.PubMedURL(e.PMID), nonNil(e.KeyPoints), e.Notes)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return fmt.Errorf("build evidence insert: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert evidence for claim %s: %w", c.ClaimID, err)
		}
	}

	links := drugLinks(c)
	if len(links) == 0 {
		return nil
	}
	ins := s.sb.Insert(tableLinks).Columns("claim_id", "term", "term_kind")
	for _, l := range links {
		ins = ins.Values(claimID, l.term, l.kind)
	}
	query, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build drug link insert: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert drug links for claim %s: %w", c.ClaimID, err)
	}
	return nil
}

type drugLink struct {
	term string
	kind string
}

// drugLinks lists the claim's drugs and classes once per kind.
func drugLinks(c model.AggregatedClaim) []drugLink {
	seen := make(map[drugLink]bool)
	var out []drugLink
	add := func(term, kind string) {
		term = strings.TrimSpace(term)
		if term == "" {
			return
		}
		key := drugLink{term: strings.ToLower(term), kind: kind}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, drugLink{term: term, kind: kind})
	}
	for _, d := range c.Drugs {
		add(d, termKindDrug)
	}
	for _, cls := range c.DrugClasses {
		add(cls, termKindClass)
	}
	return out
}

// GetClaimSet loads the set stored under signature with its claims in
// their original order.
func (s *Store) GetClaimSet(ctx context.Context, signature string) (*model.ClaimSet, error) {
	q := QuerierFromCtx(ctx, s.db)

	query, args, err := s.sb.Select("id", "condition_label", "mesh_signature", "mesh_terms", "created_at").
		From(tableSets).
		Where(squirrel.Eq{"mesh_signature": signature}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	set := &model.ClaimSet{}
	if err := q.QueryRow(ctx, query, args...).Scan(
		&set.ID, &set.ConditionLabel, &set.MeshSignature, &set.MeshTerms, &set.CreatedAt,
	); err != nil {
		return nil, mapError(err, "claim set", signature)
	}

	rowIDs, err := s.loadClaims(ctx, q, set)
	if err != nil {
		return nil, mapError(err, "claim set", signature)
	}
	if len(rowIDs) == 0 {
		return set, nil
	}
	if err := s.loadEvidence(ctx, q, set, rowIDs); err != nil {
		return nil, mapError(err, "claim set", signature)
	}
	return set, nil
}

// loadClaims fills set.Claims and returns the claim row ids in order.
func (s *Store) loadClaims(ctx context.Context, q Querier, set *model.ClaimSet) ([]string, error) {
	query, args, err := s.sb.Select("id", "claim_id", "classification", "summary", "confidence",
		"drugs", "drug_classes", "source_claim_ids", "articles", "severe_reaction", "severe_reaction_terms").
		From(tableClaims).
		Where(squirrel.Eq{"claim_set_id": set.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claims select: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var (
			id             string
			c              model.AggregatedClaim
			classification string
			confidence     string
		)
		if err := rows.Scan(&id, &c.ClaimID, &classification, &c.Summary, &confidence,
			&c.Drugs, &c.DrugClasses, &c.SourceClaimIDs, &c.Articles,
			&c.SevereReaction, &c.SevereReactionTerms); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.Classification = model.Classification(classification)
		c.Confidence = model.Confidence(confidence)
		ids = append(ids, id)
		set.Claims = append(set.Claims, c)
	}
	return ids, rows.Err()
}

func (s *Store) loadEvidence(ctx context.Context, q Querier, set *model.ClaimSet, rowIDs []string) error {
	index := make(map[string]int, len(rowIDs))
	for i, id := range rowIDs {
		index[id] = i
	}

	query, args, err := s.sb.Select("claim_id", "snippet_id", "pmid", "article_title", "key_points", "notes").
		From(tableEvidence).
		Where(squirrel.Eq{"claim_id": rowIDs}).
		OrderBy("claim_id", "position").
		ToSql()
	if err != nil {
		return fmt.Errorf("build evidence select: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			claimRow string
			e        model.ClaimEvidence
		)
		if err := rows.Scan(&claimRow, &e.SnippetID, &e.PMID, &e.ArticleTitle, &e.KeyPoints, &e.Notes); err != nil {
			return fmt.Errorf("scan evidence: %w", err)
		}
		i, ok := index[claimRow]
		if !ok {
			continue
		}
		set.Claims[i].Evidence = append(set.Claims[i].Evidence, e)
	}
	return rows.Err()
}

// SignaturesForTerm returns the mesh signatures of every stored set with a
// claim linked to term, matched case-insensitively. An empty kind matches
// drugs and drug classes.
func (s *Store) SignaturesForTerm(ctx context.Context, term, kind string) ([]string, error) {
	sel := s.sb.Select("DISTINCT s.mesh_signature").
		From(tableLinks + " l").
		Join(tableClaims + " c ON c.id = l.claim_id").
		Join(tableSets + " s ON s.id = c.claim_set_id").
		Where(squirrel.Expr("lower(l.term) = lower(?)", strings.TrimSpace(term))).
		OrderBy("s.mesh_signature")
	if kind != "" {
		sel = sel.Where(squirrel.Eq{"l.term_kind": kind})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build term select: %w", err)
	}

	rows, err := QuerierFromCtx(ctx, s.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "drug term", term)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "drug term", term)
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
