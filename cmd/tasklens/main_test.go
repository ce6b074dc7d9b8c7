package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Jayphen/tasklens/internal/tasksource"
	"github.com/Jayphen/tasklens/internal/types"
)

// testEnv isolates HOME and logging and returns a vault with one open and
// one completed task.
func testEnv(t *testing.T) (vault string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("TASKLENS_LOG_FILE", filepath.Join(home, "tasklens.log"))
	t.Setenv("TASKLENS_LOG_LEVEL", "error")
	for _, key := range []string{"TASKLENS_REFRESH_INTERVAL", "TASKLENS_REDIS_URL", "REDIS_URL", "GITHUB_TOKEN", "LINEAR_API_KEY"} {
		t.Setenv(key, "")
	}

	vault = filepath.Join(home, "notes")
	writeFile(t, filepath.Join(vault, "work.md"), "- [ ] write report 📅 2020-01-01\n- [x] old thing ✅ 2020-01-02\n")
	writeFile(t, filepath.Join(vault, "daily.md"), "# Today\n")
	return vault
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// run executes the CLI with the vault as its only source.
func run(t *testing.T, vault string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	full := append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...)
	if vault != "" {
		full = append(full, "--source", "obsidian:name=notes,path="+vault)
	}
	cmd.SetArgs(full)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func listJSONTasks(t *testing.T, vault string, args ...string) []tasksource.Task {
	t.Helper()
	out, err := run(t, vault, append([]string{"list", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var tasks []tasksource.Task
	if err := json.Unmarshal([]byte(out), &tasks); err != nil {
		t.Fatalf("list output is not JSON: %v\n%s", err, out)
	}
	return tasks
}

func names(tasks []tasksource.Task) []string {
	var out []string
	for _, task := range tasks {
		out = append(out, task.Name())
	}
	return out
}

func TestList(t *testing.T) {
	vault := testEnv(t)

	if diff := cmp.Diff([]string{"write report"}, names(listJSONTasks(t, vault))); diff != "" {
		t.Errorf("default list mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"write report", "old thing"}, names(listJSONTasks(t, vault, "--all"))); diff != "" {
		t.Errorf("--all mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"old thing"}, names(listJSONTasks(t, vault, "--state", "completed"))); diff != "" {
		t.Errorf("--state mismatch (-want +got):\n%s", diff)
	}
	if got := listJSONTasks(t, vault, "--due", "today,future"); len(got) != 0 {
		t.Errorf("--due today,future = %v, want none", names(got))
	}

	tasks := listJSONTasks(t, vault)
	if tasks[0].Source != "notes" || tasks[0].Place != "work.md:0" {
		t.Errorf("task = %+v", tasks[0])
	}

	out, err := run(t, vault, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, want := range []string{shortID(tasks[0].ID), "write report", "2020-01-01", "notes", "Total: 1 tasks, 1 due today or overdue"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, vault, "list", "--state", "finished"); err == nil {
		t.Error("list accepted an unknown state")
	}
}

func TestDoneStartReopen(t *testing.T) {
	vault := testEnv(t)
	work := filepath.Join(vault, "work.md")

	id := listJSONTasks(t, vault)[0].ID
	out, err := run(t, vault, "start", id[:8])
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if out != "in_progress: write report\n" {
		t.Errorf("start output = %q", out)
	}
	if !strings.HasPrefix(readFile(t, work), "- [/] write report 📅 2020-01-01\n") {
		t.Errorf("work.md after start:\n%s", readFile(t, work))
	}

	// The id changes with the state, so list again.
	id = listJSONTasks(t, vault)[0].ID
	if _, err := run(t, vault, "done", id); err != nil {
		t.Fatalf("done failed: %v", err)
	}
	today := types.Today(time.Now()).Format(types.DateLayout)
	if !strings.HasPrefix(readFile(t, work), "- [x] write report 📅 2020-01-01 ✅ "+today+"\n") {
		t.Errorf("work.md after done:\n%s", readFile(t, work))
	}

	tasks := listJSONTasks(t, vault, "--state", "completed")
	if _, err := run(t, vault, "reopen", tasks[0].ID); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if !strings.HasPrefix(readFile(t, work), "- [ ] write report 📅 2020-01-01\n") {
		t.Errorf("work.md after reopen:\n%s", readFile(t, work))
	}
}

func TestSet(t *testing.T) {
	vault := testEnv(t)
	work := filepath.Join(vault, "work.md")

	id := listJSONTasks(t, vault)[0].ID
	out, err := run(t, vault, "set", id, "--due", "2030-05-01", "--priority", "high", "--name", "write the report")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if out != "Updated: write report\n" {
		t.Errorf("set output = %q", out)
	}
	if want := "- [ ] write the report 📅 2030-05-01 ⏫\n"; !strings.HasPrefix(readFile(t, work), want) {
		t.Errorf("work.md = %q, want prefix %q", readFile(t, work), want)
	}

	id = listJSONTasks(t, vault)[0].ID
	if _, err := run(t, vault, "set", id, "--due", "none"); err != nil {
		t.Fatalf("set --due none failed: %v", err)
	}
	if want := "- [ ] write the report ⏫\n"; !strings.HasPrefix(readFile(t, work), want) {
		t.Errorf("work.md = %q, want prefix %q", readFile(t, work), want)
	}

	if _, err := run(t, vault, "set", id); err == nil || !strings.Contains(err.Error(), "nothing to change") {
		t.Errorf("set without flags error = %v", err)
	}
	if _, err := run(t, vault, "set", id, "--priority", "urgent"); err == nil {
		t.Error("set accepted an unknown priority")
	}
}

func TestAddAndRm(t *testing.T) {
	vault := testEnv(t)
	daily := filepath.Join(vault, "daily.md")

	out, err := run(t, vault, "add", "buy", "milk", "--due", "2030-01-02", "--priority", "low")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if out != "Added: buy milk\n" {
		t.Errorf("add output = %q", out)
	}
	if diff := cmp.Diff("# Today\n- [ ] buy milk 📅 2030-01-02 🔽\n", readFile(t, daily)); diff != "" {
		t.Errorf("daily.md mismatch (-want +got):\n%s", diff)
	}

	if _, err := run(t, vault, "add", "call", "bank", "--provider", "ghost"); !errors.Is(err, tasksource.ErrSourceNotFound) {
		t.Errorf("add --provider ghost error = %v, want ErrSourceNotFound", err)
	}

	var milk tasksource.Task
	for _, task := range listJSONTasks(t, vault) {
		if task.Name() == "buy milk" {
			milk = task
		}
	}
	if milk.ID == "" {
		t.Fatal("added task not listed")
	}
	if _, err := run(t, vault, "rm", milk.ID); err != nil {
		t.Fatalf("rm failed: %v", err)
	}
	if diff := cmp.Diff("# Today\n", readFile(t, daily)); diff != "" {
		t.Errorf("daily.md after rm mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiLineNamesStayOnOneLine(t *testing.T) {
	vault := testEnv(t)
	daily := filepath.Join(vault, "daily.md")

	if _, err := run(t, vault, "add", "buy\nmilk"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if diff := cmp.Diff("# Today\n- [ ] buy milk\n", readFile(t, daily)); diff != "" {
		t.Errorf("daily.md mismatch (-want +got):\n%s", diff)
	}

	id := listJSONTasks(t, vault, "--due", "overdue")[0].ID
	if _, err := run(t, vault, "set", id, "--name", "write\nthe report"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	work := filepath.Join(vault, "work.md")
	if want := "- [ ] write the report 📅 2020-01-01\n- [x] old thing"; !strings.HasPrefix(readFile(t, work), want) {
		t.Errorf("work.md = %q, want prefix %q", readFile(t, work), want)
	}
}

func TestResolveErrors(t *testing.T) {
	vault := testEnv(t)

	if _, err := run(t, vault, "done", "zzzz"); !errors.Is(err, tasksource.ErrTaskNotFound) {
		t.Errorf("done zzzz error = %v, want ErrTaskNotFound", err)
	}
	if _, err := run(t, "", "list"); err == nil || !strings.Contains(err.Error(), "no task sources configured") {
		t.Errorf("list without sources error = %v", err)
	}
	if _, err := run(t, vault, "list", "--source", "nonsense"); !errors.Is(err, tasksource.ErrInvalidConfig) {
		t.Errorf("bad --source error = %v, want ErrInvalidConfig", err)
	}
}

func TestRemind(t *testing.T) {
	vault := testEnv(t)

	out, err := run(t, vault, "remind", "--dry-run")
	if err != nil {
		t.Fatalf("remind failed: %v", err)
	}
	if out != "tasklens: 1 overdue\nwrite report\n" {
		t.Errorf("remind output = %q", out)
	}

	writeFile(t, filepath.Join(vault, "work.md"), "- [ ] someday\n")
	out, err = run(t, vault, "remind")
	if err != nil {
		t.Fatalf("remind failed: %v", err)
	}
	if out != "Nothing due\n" {
		t.Errorf("remind output = %q", out)
	}
}

func TestBuildReminder(t *testing.T) {
	now := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	day := func(d int) *time.Time {
		v := time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	tasks := []tasksource.Task{
		{Title: "tomorrow", Due: day(11)},
		{Title: "today", Due: day(10)},
		{Title: "late", Due: day(2)},
		{Title: "later", Due: day(8), State: types.StateInProgress},
		{Title: "done", Due: day(1), State: types.StateCompleted},
		{Title: "undated"},
	}

	r := buildReminder(tasks, now)
	if diff := cmp.Diff([]string{"later", "late"}, r.Overdue); diff != "" {
		t.Errorf("overdue mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"today"}, r.Today); diff != "" {
		t.Errorf("today mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigCommands(t *testing.T) {
	testEnv(t)

	out, err := run(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "refresh_interval: 30s") {
		t.Errorf("config show output:\n%s", out)
	}

	if _, err := run(t, "", "config", "init"); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	home, _ := os.UserHomeDir()
	if _, err := os.Stat(filepath.Join(home, ".config", "tasklens", "config.yaml")); err != nil {
		t.Errorf("config file not created: %v", err)
	}
	if _, err := run(t, "", "config", "init"); err == nil {
		t.Error("config init overwrote without --force")
	}
	if _, err := run(t, "", "config", "init", "--force"); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	out, err = run(t, "", "config", "path")
	if err != nil {
		t.Fatalf("config path failed: %v", err)
	}
	if !strings.Contains(out, "config.yaml (found)") || !strings.Contains(out, "GITHUB_TOKEN") {
		t.Errorf("config path output:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	testEnv(t)

	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "tasklens "+Version+"\n") {
		t.Errorf("version output = %q", out)
	}
}
