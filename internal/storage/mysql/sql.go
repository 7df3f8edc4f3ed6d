package mysql

// The whole collection lives in a single row; snapshotRowID is its key.
const snapshotRowID = 1

const upsertSnapshotSQL = `
INSERT INTO review_snapshots
  (id, doc)
VALUES
  (?, ?)
ON DUPLICATE KEY UPDATE
  doc        = VALUES(doc),
  updated_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getSnapshotSQL = `
SELECT doc
FROM review_snapshots
WHERE id = ?
`
