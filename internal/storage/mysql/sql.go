package mysql

const reviewColumns = "id, source_id, source, property_id, property_name, guest_name, rating, public_review, private_notes, review_categories, channel, review_type, submitted_at, status, approved, display_on_website"

const insertReviewsPrefix = "INSERT INTO reviews\n  (" + reviewColumns + ")\nVALUES "

const upsertRow = "(?,?,?,?,?,?,?,?,?,?,?,?,?,?,FALSE,FALSE)"

// id, approved and display_on_website are never touched on conflict: the
// surrogate key stays stable and staff decisions survive a re-sync.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  property_id       = VALUES(property_id),\n" +
	"  property_name     = VALUES(property_name),\n" +
	"  guest_name        = VALUES(guest_name),\n" +
	"  rating            = VALUES(rating),\n" +
	"  public_review     = VALUES(public_review),\n" +
	"  private_notes     = VALUES(private_notes),\n" +
	"  review_categories = VALUES(review_categories),\n" +
	"  channel           = VALUES(channel),\n" +
	"  review_type       = VALUES(review_type),\n" +
	"  submitted_at      = VALUES(submitted_at),\n" +
	"  status            = VALUES(status),\n" +
	"  updated_at        = CURRENT_TIMESTAMP\n"

const selectReviewsSQL = "SELECT " + reviewColumns + " FROM reviews"

const countReviewsSQL = "SELECT COUNT(*) FROM reviews"

const getReviewSQL = selectReviewsSQL + " WHERE id = ?"

const setApprovalSQL = `
UPDATE reviews
SET approved = ?, display_on_website = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`
