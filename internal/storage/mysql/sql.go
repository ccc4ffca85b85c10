package mysql

// One row per named snapshot; the body is the raw envelope, byte-for-byte.
const upsertSnapshotSQL = `
INSERT INTO review_snapshots
  (name, body, byte_size, body_sha1)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  body       = VALUES(body),
  byte_size  = VALUES(byte_size),
  body_sha1  = VALUES(body_sha1),
  updated_at = CURRENT_TIMESTAMP
`

const insertSaveLogSQL = `
INSERT INTO review_snapshot_saves (name, byte_size, body_sha1)
VALUES (?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getSnapshotSQL = `
SELECT body
FROM review_snapshots
WHERE name = ?
`

const countSavesSQL = `
SELECT COUNT(*)
FROM review_snapshot_saves
WHERE name = ?
`
