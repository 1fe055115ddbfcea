package authcodes

import "time"

type Repo interface {
	Upsert(code *Code) error
	Get(code string) (*Code, error)
	// Consume removes and returns the code in one step. Only one caller can consume a given code.
	Consume(code string) (*Code, error)
	Delete(code string) error
	DeleteExpired(now time.Time) int
}
