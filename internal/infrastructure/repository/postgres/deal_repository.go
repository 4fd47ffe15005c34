package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"

	"github.com/lastpick/survival-pool/internal/domain/deal"
	qb "github.com/lastpick/survival-pool/internal/platform/querybuilder"
)

type dealTableModel struct {
	ID             string         `db:"id"`
	RoomID         string         `db:"room_id"`
	ProposedBy     string         `db:"proposed_by"`
	AtGameweek     int            `db:"at_gameweek"`
	RequiredVoters pq.StringArray `db:"required_voters"`
	Votes          []byte         `db:"votes"`
	Status         string         `db:"status"`
	CreatedAt      time.Time      `db:"created_at"`
	ExpiresAt      time.Time      `db:"expires_at"`
	ClosedAt       *time.Time     `db:"closed_at"`
}

func (m dealTableModel) toDomain() (deal.Proposal, error) {
	votes := make(map[string]string)
	if len(m.Votes) > 0 {
		if err := sonic.Unmarshal(m.Votes, &votes); err != nil {
			return deal.Proposal{}, fmt.Errorf("decode proposal votes: %w", err)
		}
	}

	return deal.Proposal{
		ID:             m.ID,
		RoomID:         m.RoomID,
		ProposedBy:     m.ProposedBy,
		AtGameweek:     m.AtGameweek,
		RequiredVoters: []string(m.RequiredVoters),
		Votes:          votes,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		ClosedAt:       m.ClosedAt,
	}, nil
}

const dealColumns = "id, room_id, proposed_by, at_gameweek, required_voters, votes, status, created_at, expires_at, closed_at"

type DealRepository struct {
	db dbtx
}

func NewDealRepository(db dbtx) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, p deal.Proposal) error {
	votes, err := sonic.Marshal(p.Votes)
	if err != nil {
		return fmt.Errorf("encode proposal votes: %w", err)
	}

	const query = `
INSERT INTO deal_proposals (id, room_id, proposed_by, at_gameweek, required_voters, votes, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.RoomID, p.ProposedBy, p.AtGameweek,
		pq.StringArray(p.RequiredVoters), votes, p.Status, p.CreatedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	return nil
}

func (r *DealRepository) GetByID(ctx context.Context, proposalID string) (deal.Proposal, bool, error) {
	return r.getOne(ctx, qb.Eq("id", proposalID))
}

func (r *DealRepository) GetOpenByRoom(ctx context.Context, roomID string) (deal.Proposal, bool, error) {
	return r.getOne(ctx, qb.Eq("room_id", roomID), qb.Eq("status", deal.StatusOpen))
}

func (r *DealRepository) getOne(ctx context.Context, conds ...qb.Condition) (deal.Proposal, bool, error) {
	query, args, err := qb.Select(dealColumns).
		From("deal_proposals").
		Where(conds...).
		ToSQL()
	if err != nil {
		return deal.Proposal{}, false, fmt.Errorf("build select proposal query: %w", err)
	}

	var row dealTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return deal.Proposal{}, false, nil
		}
		return deal.Proposal{}, false, fmt.Errorf("get proposal: %w", err)
	}

	p, err := row.toDomain()
	if err != nil {
		return deal.Proposal{}, false, err
	}

	return p, true, nil
}

func (r *DealRepository) Update(ctx context.Context, p deal.Proposal) error {
	votes, err := sonic.Marshal(p.Votes)
	if err != nil {
		return fmt.Errorf("encode proposal votes: %w", err)
	}

	query, args, err := qb.Update("deal_proposals").
		Set("required_voters", pq.StringArray(p.RequiredVoters)).
		Set("votes", votes).
		Set("status", p.Status).
		Set("closed_at", p.ClosedAt).
		Where(qb.Eq("id", p.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update proposal query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("proposal %s not found", p.ID)
	}

	return nil
}

func (r *DealRepository) ListOpen(ctx context.Context) ([]deal.Proposal, error) {
	query, args, err := qb.Select(dealColumns).
		From("deal_proposals").
		Where(qb.Eq("status", deal.StatusOpen)).
		OrderBy("created_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select open proposals query: %w", err)
	}

	var rows []dealTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select open proposals: %w", err)
	}

	out := make([]deal.Proposal, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, nil
}
