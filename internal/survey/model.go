package survey

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MaxScore is the highest score the burnout questionnaire can produce.
const MaxScore = 75

// Survey is one burnout questionnaire submission. A user submits at most
// one per calendar day.
type Survey struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Day       time.Time // date only, clinic local
	Score     int
	Answers   json.RawMessage
	CreatedAt time.Time
}
