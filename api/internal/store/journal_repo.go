package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/controller"
)

var schema = []string{`
create table if not exists generation_journal (
  id           bigserial primary key,
  created_at   timestamptz not null default now(),
  chat_id      bigint not null default 0,
  variant      text not null,
  style_id     text not null default '',
  file_name    text not null default '',
  file_sha256  text not null,
  file_size    bigint not null,
  outcome      text not null,
  message      text not null default '',
  status_code  int not null default 0,
  text_length  int not null default 0,
  duration_ms  bigint not null default 0
)`,
	`create index if not exists generation_journal_chat_idx on generation_journal (chat_id, created_at desc)`,
}

// JournalRepo stores settled generations. It never stores image bytes or
// generated text, only their fingerprints and sizes.
type JournalRepo struct{ DB *sql.DB }

func NewJournalRepo(db *sql.DB) *JournalRepo { return &JournalRepo{DB: db} }

func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// JournalRow is one row read back for display.
type JournalRow struct {
	ID        int64
	CreatedAt time.Time
	ChatID    int64
	Entry     controller.JournalEntry
}

// Insert writes e for chatID.
func (r *JournalRepo) Insert(ctx context.Context, chatID int64, e controller.JournalEntry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	const q = `
insert into generation_journal (
  created_at, chat_id, variant, style_id, file_name, file_sha256, file_size,
  outcome, message, status_code, text_length, duration_ms
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.DB.ExecContext(ctx, q,
		e.At, chatID, string(e.Variant), e.StyleID, e.FileName, e.FileSHA256, e.FileSize,
		e.Outcome, e.Message, e.StatusCode, e.TextLength, e.Duration.Milliseconds(),
	)
	return err
}

// Recent returns the latest rows for chatID, newest first.
func (r *JournalRepo) Recent(ctx context.Context, chatID int64, limit int) ([]JournalRow, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
select id, created_at, chat_id, variant, style_id, file_name, file_sha256, file_size,
       outcome, message, status_code, text_length, duration_ms
from generation_journal
where chat_id = $1
order by created_at desc, id desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalRow
	for rows.Next() {
		var (
			row     JournalRow
			variant string
			ms      int64
		)
		if err := rows.Scan(
			&row.ID, &row.CreatedAt, &row.ChatID, &variant, &row.Entry.StyleID,
			&row.Entry.FileName, &row.Entry.FileSHA256, &row.Entry.FileSize,
			&row.Entry.Outcome, &row.Entry.Message, &row.Entry.StatusCode,
			&row.Entry.TextLength, &ms,
		); err != nil {
			return nil, err
		}
		row.Entry.At = row.CreatedAt
		row.Entry.Variant = backend.Variant(variant)
		row.Entry.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan removes old rows so the table does not grow unbounded.
func (r *JournalRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from generation_journal where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// ForChat binds the repo to one chat so it satisfies controller.Journal.
func (r *JournalRepo) ForChat(chatID int64) controller.Journal {
	return chatJournal{repo: r, chatID: chatID}
}

type chatJournal struct {
	repo   *JournalRepo
	chatID int64
}

func (j chatJournal) Record(ctx context.Context, e controller.JournalEntry) error {
	return j.repo.Insert(ctx, j.chatID, e)
}
