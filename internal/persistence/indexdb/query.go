package indexdb

import (
	"context"
	"database/sql"
)

type RoundRow struct {
	RoundID      string `json:"round_id"`
	Number       int    `json:"number"`
	StartTick    uint64 `json:"start_tick"`
	EndTick      uint64 `json:"end_tick,omitempty"`
	Finished     bool   `json:"finished"`
	Participants int    `json:"participants"`
	Winner       string `json:"winner,omitempty"`
	WinnerName   string `json:"winner_name,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type TransferRow struct {
	Seq    int    `json:"seq"`
	Tick   uint64 `json:"tick"`
	Kind   string `json:"kind"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Pos    [3]int `json:"pos"`
	Reason string `json:"reason,omitempty"`
}

// Rounds lists indexed rounds, newest first.
func (s *SQLiteIndex) Rounds(ctx context.Context, limit int) ([]RoundRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT round_id,number,start_tick,end_tick,participants,winner,winner_name,reason
		FROM rounds ORDER BY number DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RoundRow
	for rows.Next() {
		var (
			r                          RoundRow
			endTick                    sql.NullInt64
			winner, winnerName, reason sql.NullString
		)
		if err := rows.Scan(&r.RoundID, &r.Number, &r.StartTick, &endTick, &r.Participants, &winner, &winnerName, &reason); err != nil {
			return nil, err
		}
		r.Finished = endTick.Valid
		r.EndTick = uint64(endTick.Int64)
		r.Winner = winner.String
		r.WinnerName = winnerName.String
		r.Reason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Transfers(ctx context.Context, roundID string) ([]TransferRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq,tick,kind,from_id,to_id,x,y,z,reason
		FROM transfers WHERE round_id=? ORDER BY seq`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransferRow
	for rows.Next() {
		var (
			t                TransferRow
			from, to, reason sql.NullString
		)
		if err := rows.Scan(&t.Seq, &t.Tick, &t.Kind, &from, &to, &t.Pos[0], &t.Pos[1], &t.Pos[2], &reason); err != nil {
			return nil, err
		}
		t.From = from.String
		t.To = to.String
		t.Reason = reason.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) TickCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ticks`).Scan(&n)
	return n, err
}
