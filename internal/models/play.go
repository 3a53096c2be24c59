package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const NumBoxes = 3

// BoxChoice is the player's pick. Clients send it either as a number or as
// a numeric string; anything that does not parse becomes NaN and never wins.
type BoxChoice float64

func (c *BoxChoice) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*c = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = BoxChoice(n)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*c = 1
		} else {
			*c = 0
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*c = BoxChoice(math.NaN())
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		*c = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		n = math.NaN()
	}
	*c = BoxChoice(n)
	return nil
}

func (c BoxChoice) Is(box int) bool {
	return float64(c) == float64(box)
}

type PlayResult struct {
	AttemptNumber     int64           `json:"attemptNumber"`
	BlueBox           int             `json:"blueBox"`
	Win               bool            `json:"win"`
	WinAmount         decimal.Decimal `json:"winAmount"`
	Lost              decimal.Decimal `json:"lost"`
	NewBalance        decimal.Decimal `json:"newBalance"`
	RemainingAttempts int64           `json:"remainingAttempts"`
}
