package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/freeeve/civ-balance/api/internal/auth"
	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunSimulationsSeededRunsAreReproducible(t *testing.T) {
	opts := runOptions{profile: balance.ProfileRanked, players: 40, matches: 500, seed: 11, runs: 2, workers: 2}

	first, err := runSimulations(context.Background(), opts)
	if err != nil {
		t.Fatalf("runSimulations: %v", err)
	}
	second, err := runSimulations(context.Background(), opts)
	if err != nil {
		t.Fatalf("runSimulations: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 outcomes each, got %d and %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i].Run, second[i].Run
		if a.Seed != 11+int64(i) {
			t.Errorf("run %d: expected seed %d, got %d", i, 11+i, a.Seed)
		}
		if a.MeanRating != b.MeanRating {
			t.Errorf("run %d: same seed gave mean ratings %v and %v", i, a.MeanRating, b.MeanRating)
		}
		if a.MatchesCompleted != 500 || a.Status != model.RunCompleted {
			t.Errorf("run %d: unexpected run %+v", i, a)
		}
	}
	if first[0].Run.MeanRating == first[1].Run.MeanRating {
		t.Error("expected different seeds to diverge")
	}
}

func TestRunSimulationsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := runSimulations(ctx, runOptions{profile: balance.ProfileRanked, players: 10, matches: 100})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(out) != 0 {
		t.Errorf("expected no outcomes, got %d", len(out))
	}
}

func TestRunSimulationsArchiveNeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := runSimulations(context.Background(), runOptions{profile: balance.ProfileRanked, archive: true})
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("expected missing database error, got %v", err)
	}
}

func TestRunCommandSummary(t *testing.T) {
	out, err := execute(t, "run", "-p", "30", "-m", "400", "--seed", "5", "--mode", "random")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Results (1 runs, 400 matches, random mode, 30 players", "Chinese", "Run 1 (mean rating"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunCommandJSON(t *testing.T) {
	out, err := execute(t, "run", "--json", "--profile", "synthetic", "-p", "20", "-m", "200", "--seed", "9")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var outcomes []runOutcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(outcomes) != 1 || outcomes[0].Run.Profile != balance.ProfileSynthetic {
		t.Errorf("unexpected outcomes %+v", outcomes)
	}
	if outcomes[0].Report == "" {
		t.Error("expected report message")
	}
}

func TestCivsCommand(t *testing.T) {
	out, err := execute(t, "civs", "--spread", "1.4")
	if err != nil {
		t.Fatalf("civs: %v", err)
	}
	if !strings.Contains(out, "Profile ranked, spread 1.40") {
		t.Errorf("unexpected header:\n%s", out)
	}

	out, err = execute(t, "civs", "--json")
	if err != nil {
		t.Fatalf("civs --json: %v", err)
	}
	var list model.CivilizationList
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Civilizations) != 49 {
		t.Errorf("expected 49 civs, got %d", len(list.Civilizations))
	}

	out, err = execute(t, "civs", "--profiles")
	if err != nil {
		t.Fatalf("civs --profiles: %v", err)
	}
	if !strings.Contains(out, "ranked") || !strings.Contains(out, "synthetic") {
		t.Errorf("expected both profiles listed:\n%s", out)
	}

	if _, err := execute(t, "civs", "--profile", "nope"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := execute(t, "token", "ops"); err == nil {
		t.Error("expected error without a secret")
	}

	out, err := execute(t, "token", "ops", "--secret", "s3cret")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	claims, err := auth.NewJWTManager("s3cret").ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("validate minted token: %v", err)
	}
	if claims.Operator != "ops" {
		t.Errorf("expected operator ops, got %s", claims.Operator)
	}
}

func TestPrintSummaryNoRuns(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, nil)
	if !strings.Contains(buf.String(), "No runs completed.") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
