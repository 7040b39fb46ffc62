package aiclient

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"laundry-aura-backend/internal/laundry"
)

// fallbackPrediction is the local heuristic used whenever the remote call
// is unavailable or fails: 80% of the user's average delay, clamped to
// [3,15] minutes, with 5 standing in for an empty history.
func fallbackPrediction(history []int, durationMinutes int) Prediction {
	avg := 5.0
	if len(history) > 0 {
		sum := 0
		for _, d := range history {
			sum += d
		}
		avg = float64(sum) / float64(len(history))
	}
	delay := int(math.Round(avg * 0.8))
	if delay < 3 {
		delay = 3
	}
	if delay > 15 {
		delay = 15
	}

	messages := []string{
		fmt.Sprintf("Your %d min cycle is running smoothly!", durationMinutes),
		fmt.Sprintf("Laundry in progress! Check back in %d minutes.", durationMinutes),
		"Cycle started! Your clothes will be ready soon.",
	}
	return Prediction{
		DelayMinutes: delay,
		Message:      messages[rand.Intn(len(messages))],
	}
}

// fallbackChatReply builds a canned status-aware answer keyed on keyword
// detection in the question.
func fallbackChatReply(question string, machines []laundry.Machine) string {
	var free []string
	for _, m := range machines {
		if m.Status == laundry.StatusFree {
			free = append(free, fmt.Sprintf("%s %d", m.Type, m.ID))
		}
	}

	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "free") || strings.Contains(q, "available"):
		if len(free) > 0 {
			return fmt.Sprintf("Yes! %d machines are free: %s.", len(free), strings.Join(free, ", "))
		}
		return "All machines are currently busy. Check back in 30-60 minutes!"
	case strings.Contains(q, "time") || strings.Contains(q, "when"):
		switch {
		case len(free) >= 2:
			return "Perfect time for laundry! Multiple machines available."
		case len(free) == 1:
			return "One machine free - grab it quick!"
		default:
			return "All machines busy. Try again later or check back in an hour."
		}
	}

	replies := []string{
		"I'm here to help with laundry questions! Ask me about machine availability.",
		"I can help with laundry info! What would you like to know?",
		"Having connection issues, but you can see machine status on the dashboard!",
	}
	return replies[rand.Intn(len(replies))]
}
