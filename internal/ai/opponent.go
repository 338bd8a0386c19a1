package ai

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"time"

	"codeduel/internal/llm"
	"codeduel/internal/models"

	"github.com/google/uuid"
)

// AIUserID is the synthetic participant id AI opponents emit events under.
// Real user ids start at 1.
const AIUserID uint = 0

// EventSink receives the opponent's simulated editor activity
type EventSink interface {
	SendCodeUpdate(duelID uuid.UUID, userID uint, code, language string)
	SendTypingStatus(duelID uuid.UUID, userID uint, isTyping bool)
}

// behaviorProfile shapes how an opponent of a given difficulty appears to
// work: how long it "reads" the problem, how fast it types, and how long
// its pauses between bursts are.
type behaviorProfile struct {
	TypingSpeedWpm int
	ThinkPauseMin  time.Duration
	ThinkPauseMax  time.Duration
	ChunkPauseMin  time.Duration
	ChunkPauseMax  time.Duration
	ReviewMin      time.Duration
	ReviewMax      time.Duration
	TotalThinkMin  time.Duration
	TotalThinkMax  time.Duration
}

var profiles = map[models.Difficulty]behaviorProfile{
	models.DifficultyEasy: {
		TypingSpeedWpm: 20,
		ThinkPauseMin:  5 * time.Second, ThinkPauseMax: 15 * time.Second,
		ChunkPauseMin: 2 * time.Second, ChunkPauseMax: 5 * time.Second,
		ReviewMin: 5 * time.Second, ReviewMax: 10 * time.Second,
		TotalThinkMin: 15 * time.Second, TotalThinkMax: 45 * time.Second,
	},
	models.DifficultyMedium: {
		TypingSpeedWpm: 35,
		ThinkPauseMin:  4 * time.Second, ThinkPauseMax: 10 * time.Second,
		ChunkPauseMin: 1500 * time.Millisecond, ChunkPauseMax: 4 * time.Second,
		ReviewMin: 4 * time.Second, ReviewMax: 8 * time.Second,
		TotalThinkMin: 30 * time.Second, TotalThinkMax: 90 * time.Second,
	},
	models.DifficultyHard: {
		TypingSpeedWpm: 50,
		ThinkPauseMin:  3 * time.Second, ThinkPauseMax: 8 * time.Second,
		ChunkPauseMin: time.Second, ChunkPauseMax: 3 * time.Second,
		ReviewMin: 3 * time.Second, ReviewMax: 6 * time.Second,
		TotalThinkMin: 60 * time.Second, TotalThinkMax: 180 * time.Second,
	},
	models.DifficultyExpert: {
		TypingSpeedWpm: 65,
		ThinkPauseMin:  2 * time.Second, ThinkPauseMax: 6 * time.Second,
		ChunkPauseMin: 500 * time.Millisecond, ChunkPauseMax: 2 * time.Second,
		ReviewMin: 2 * time.Second, ReviewMax: 5 * time.Second,
		TotalThinkMin: 2 * time.Minute, TotalThinkMax: 5 * time.Minute,
	},
}

func profileFor(difficulty models.Difficulty) behaviorProfile {
	if p, ok := profiles[difficulty]; ok {
		return p
	}
	return profiles[models.DifficultyMedium]
}

// Opponent simulates the human-visible side of an AI player. It emits
// code_update and typing_status events only; it never submits, so it can
// pressure the human without ever winning on its own.
type Opponent struct {
	llm   *llm.Client
	sink  EventSink
	scale float64
}

func NewOpponent(client *llm.Client, sink EventSink) *Opponent {
	return &Opponent{llm: client, sink: sink, scale: 1.0}
}

// Play runs one opponent session. It blocks until the performance ends or
// ctx is cancelled, so callers run it in its own goroutine with a context
// cancelled on duel termination.
func (o *Opponent) Play(ctx context.Context, duelID uuid.UUID, difficulty models.Difficulty, problem *models.Problem) {
	profile := profileFor(difficulty)

	log.Printf("[AIOpponent] duel %s: thinking (%s difficulty)", duelID, difficulty)
	if !o.sleep(ctx, o.between(profile.TotalThinkMin, profile.TotalThinkMax)) {
		return
	}

	solution := o.solutionFor(ctx, problem)
	chunks := splitChunks(solution)
	if len(chunks) == 0 {
		return
	}

	o.sink.SendTypingStatus(duelID, AIUserID, true)
	defer o.sink.SendTypingStatus(duelID, AIUserID, false)

	var typed strings.Builder
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}

		typed.WriteString(chunk)
		o.sink.SendCodeUpdate(duelID, AIUserID, typed.String(), judgeLanguage)

		if i == len(chunks)-1 {
			break
		}

		pause := typingTime(chunk, profile.TypingSpeedWpm) + o.between(profile.ChunkPauseMin, profile.ChunkPauseMax)
		if rand.Intn(5) == 0 {
			// occasionally stop to "think" mid-solution
			pause += o.between(profile.ThinkPauseMin, profile.ThinkPauseMax)
		}
		if !o.sleep(ctx, pause) {
			return
		}
	}

	// final full-code update, then a review pause, then stop without
	// submitting
	o.sink.SendCodeUpdate(duelID, AIUserID, solution, judgeLanguage)
	o.sleep(ctx, o.between(profile.ReviewMin, profile.ReviewMax))
	log.Printf("[AIOpponent] duel %s: finished typing, idling", duelID)
}

const judgeLanguage = "python"

func (o *Opponent) solutionFor(ctx context.Context, problem *models.Problem) string {
	if o.llm != nil && o.llm.Available() {
		code, err := o.generateSolution(ctx, problem)
		if err == nil {
			return code
		}
		log.Printf("[AIOpponent] solution generation failed: %v", err)
	}
	if problem.ReferenceSolution != nil && strings.TrimSpace(*problem.ReferenceSolution) != "" {
		return *problem.ReferenceSolution
	}
	return templateSolution(problem)
}

func (o *Opponent) generateSolution(ctx context.Context, problem *models.Problem) (string, error) {
	var sb strings.Builder
	sb.WriteString("Solve the following problem in python. Define a function named ")
	sb.WriteString(problem.FunctionName)
	sb.WriteString(".\n\n")
	sb.WriteString(problem.Title)
	sb.WriteString("\n\n")
	sb.WriteString(problem.Description)
	sb.WriteString("\n\nReturn ONLY the python code, no explanation and no markdown.")

	response, err := o.llm.Complete(ctx, sb.String())
	if err != nil {
		return "", err
	}
	return stripFences(response), nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// splitChunks breaks source into typing bursts on blank lines, dedents,
// and a 100-char budget. Concatenating the chunks restores the source.
func splitChunks(code string) []string {
	if code == "" {
		return nil
	}

	lines := strings.SplitAfter(code, "\n")
	var chunks []string
	var current strings.Builder
	prevIndent := 0

	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\n")
		blank := strings.TrimSpace(trimmed) == ""
		indent := len(trimmed) - len(strings.TrimLeft(trimmed, " \t"))

		if current.Len() > 0 && (blank || indent < prevIndent || current.Len() >= 100) {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		current.WriteString(line)
		if !blank {
			prevIndent = indent
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// typingTime estimates how long typing a chunk takes at the given speed,
// using the usual five chars per word convention.
func typingTime(chunk string, wpm int) time.Duration {
	if wpm <= 0 {
		wpm = 30
	}
	words := float64(len(chunk)) / 5.0
	return time.Duration(words / float64(wpm) * float64(time.Minute))
}

func (o *Opponent) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleep waits scaled duration, returning false if ctx ended first
func (o *Opponent) sleep(ctx context.Context, d time.Duration) bool {
	d = time.Duration(float64(d) * o.scale)
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
