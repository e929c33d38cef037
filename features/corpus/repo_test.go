package corpus_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexrag/features/corpus"
)

func TestPostgresRepo_FetchContentHashes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := corpus.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "content_hash"}).
		AddRow("doc1", "hash1").
		AddRow("doc2", "hash2")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, content_hash FROM documents")).
		WillReturnRows(rows)

	hashes, err := repo.FetchContentHashes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"doc1": "hash1", "doc2": "hash2"}, hashes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func syncDoc(id string) corpus.Document {
	return corpus.Document{
		ID:          id,
		Source:      "egov",
		Title:       "法人税法",
		URL:         "https://example.jp/" + id,
		ContentHash: "hash-" + id,
		Chunks: []corpus.Chunk{
			{DocID: id, Index: 0, Content: "第一条", ContentHash: "ch0", Embedding: []float32{0.1, 0.2}},
			{DocID: id, Index: 1, Content: "第二条", ContentHash: "ch1", Embedding: []float32{0.3, 0.4}},
		},
	}
}

func TestPostgresRepo_SyncBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := corpus.NewPostgresRepo(db)
	doc := syncDoc("doc1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.Source, doc.Title, doc.URL, doc.ContentHash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chunks WHERE doc_id = ANY($1)")).
		WithArgs(pq.Array([]string{doc.ID})).
		WillReturnResult(sqlmock.NewResult(0, 2))
	stmt := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO chunks"))
	stmt.ExpectExec().
		WithArgs("doc1", 0, "第一条", "ch0", "[0.100000,0.200000]").
		WillReturnResult(sqlmock.NewResult(0, 1))
	stmt.ExpectExec().
		WithArgs("doc1", 1, "第二条", "ch1", "[0.300000,0.400000]").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.SyncBatch(context.Background(), []corpus.Document{doc})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SyncBatch_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := corpus.NewPostgresRepo(db)

	// No transaction is opened for an empty work set.
	err = repo.SyncBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SyncBatch_RollbackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := corpus.NewPostgresRepo(db)
	doc := syncDoc("doc1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM chunks WHERE doc_id = ANY($1)")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = repo.SyncBatch(context.Background(), []corpus.Document{doc})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete stale chunks")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_DeactivateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := corpus.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET is_active = FALSE WHERE source = $1 AND is_active AND NOT (id = ANY($2))")).
		WithArgs("nta", pq.Array([]string{"doc1", "doc2"})).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeactivateMissing(context.Background(), "nta", []string{"doc1", "doc2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
