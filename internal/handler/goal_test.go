package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/database"
	"github.com/fernwood/starquest/internal/goal"
	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/push"
	"github.com/fernwood/starquest/internal/store"
	"github.com/fernwood/starquest/internal/websocket"
)

type nopSender struct{}

func (nopSender) Send(*model.PushSubscription, push.Payload) error { return nil }

type goalFixture struct {
	db       *sql.DB
	handler  *GoalHandler
	members  *store.MemberStore
	families *store.FamilyStore
	goals    *store.GoalStore
	pushes   *store.PushStore
}

func setupGoalHandler(t *testing.T) *goalFixture {
	t.Helper()
	return setupGoalHandlerWithSender(t, nopSender{})
}

func setupGoalHandlerWithSender(t *testing.T, sender push.Sender) *goalFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ms := store.NewMemberStore(db)
	fs := store.NewFamilyStore(db)
	gs := store.NewGoalStore(db)
	as := store.NewAchievementStore(db)
	logger := testLogger()

	engine := goal.NewEngine(gs, ms, fs, as, logger)
	hub := websocket.NewHub(logger)
	ps := store.NewPushStore(db)
	notifier := push.NewNotifier(sender, ps, logger)

	return &goalFixture{
		db:       db,
		handler:  NewGoalHandler(gs, engine, hub, notifier, logger),
		members:  ms,
		families: fs,
		goals:    gs,
		pushes:   ps,
	}
}

func (f *goalFixture) newMember(t *testing.T, name string, familyID *int64) *model.Member {
	t.Helper()
	m, err := f.members.Create(context.Background(), name, name+"@example.com", "h", "child")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if familyID != nil {
		m.FamilyID = familyID
		if err := f.members.Save(context.Background(), m); err != nil {
			t.Fatalf("save member: %v", err)
		}
	}
	return m
}

func authedRequest(method, path string, body []byte, ac auth.AuthContext) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	return req.WithContext(auth.WithAuth(req.Context(), ac))
}

func TestCreateAndCompleteGoal(t *testing.T) {
	f := setupGoalHandler(t)
	fam, err := f.families.Create(context.Background(), "Lovelace")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	m := f.newMember(t, "Ada", &fam.ID)
	ac := auth.AuthContext{MemberID: m.ID, FamilyID: fam.ID, Role: "child"}

	body, _ := json.Marshal(createGoalRequest{
		Type:    model.GoalTypePersonal,
		Title:   "Read every night",
		Rewards: model.Rewards{Stars: 10, Coins: 5},
		Tasks: []taskRequest{
			{Title: "Week one", Rewards: model.Rewards{Stars: 2, Coins: 1}},
		},
	})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/goals", body, ac))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}

	var g model.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshal goal: %v", err)
	}
	if len(g.Tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(g.Tasks))
	}

	req := authedRequest("POST", "/api/goals/x/tasks/y/complete", nil, ac)
	req.SetPathValue("id", itoa(g.ID))
	req.SetPathValue("task_id", itoa(g.Tasks[0].ID))
	rec = httptest.NewRecorder()
	f.handler.CompleteTask(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body)
	}

	var result goal.CompletionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.GoalCompleted {
		t.Error("expected goal completed after only task")
	}
	// Task reward plus goal reward.
	if result.Member.Stars != 12 || result.Member.Coins != 6 {
		t.Errorf("member rewards = %d/%d, want 12/6", result.Member.Stars, result.Member.Coins)
	}

	// Completing the same task again is rejected.
	req = authedRequest("POST", "/api/goals/x/tasks/y/complete", nil, ac)
	req.SetPathValue("id", itoa(g.ID))
	req.SetPathValue("task_id", itoa(g.Tasks[0].ID))
	rec = httptest.NewRecorder()
	f.handler.CompleteTask(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("repeat complete status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateGoalValidation(t *testing.T) {
	f := setupGoalHandler(t)
	m := f.newMember(t, "Ada", nil)
	ac := auth.AuthContext{MemberID: m.ID, Role: "child"}

	cases := []struct {
		name string
		req  createGoalRequest
	}{
		{"missing title", createGoalRequest{Type: model.GoalTypePersonal}},
		{"negative rewards", createGoalRequest{Type: model.GoalTypePersonal, Title: "x", Rewards: model.Rewards{Stars: -1}}},
		{"bad type", createGoalRequest{Type: "shared", Title: "x"}},
		{"family goal without family", createGoalRequest{Type: model.GoalTypeFamily, Title: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			rec := httptest.NewRecorder()
			f.handler.Create(rec, authedRequest("POST", "/api/goals", body, ac))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestCompleteTaskUnknownGoal(t *testing.T) {
	f := setupGoalHandler(t)
	m := f.newMember(t, "Ada", nil)
	ac := auth.AuthContext{MemberID: m.ID, Role: "child"}

	req := authedRequest("POST", "/api/goals/99/tasks/1/complete", nil, ac)
	req.SetPathValue("id", "99")
	req.SetPathValue("task_id", "1")
	rec := httptest.NewRecorder()
	f.handler.CompleteTask(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

type captureSender struct {
	sent    []push.Payload
	targets []string
}

func (c *captureSender) Send(sub *model.PushSubscription, p push.Payload) error {
	c.sent = append(c.sent, p)
	c.targets = append(c.targets, sub.Endpoint)
	return nil
}

func (f *goalFixture) createGoal(t *testing.T, ac auth.AuthContext, req createGoalRequest) *model.Goal {
	t.Helper()
	body, _ := json.Marshal(req)
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/goals", body, ac))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body)
	}
	var g model.Goal
	if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
		t.Fatalf("unmarshal goal: %v", err)
	}
	return &g
}

func TestGoalAccessControl(t *testing.T) {
	f := setupGoalHandler(t)
	ada := f.newMember(t, "Ada", nil)
	mallory := f.newMember(t, "Mallory", nil)
	adaAC := auth.AuthContext{MemberID: ada.ID, Role: "child"}
	malloryAC := auth.AuthContext{MemberID: mallory.ID, Role: "child"}

	g := f.createGoal(t, adaAC, createGoalRequest{
		Type:    model.GoalTypePersonal,
		Title:   "Read every night",
		Rewards: model.Rewards{Stars: 10, Coins: 5},
		Tasks: []taskRequest{
			{Title: "Week one", Rewards: model.Rewards{Stars: 3, Coins: 1}},
		},
	})

	// Someone else's personal goal is off limits for every verb.
	attempts := []struct {
		name string
		do   func(rec *httptest.ResponseRecorder)
	}{
		{"get", func(rec *httptest.ResponseRecorder) {
			req := authedRequest("GET", "/api/goals/x", nil, malloryAC)
			req.SetPathValue("id", itoa(g.ID))
			f.handler.Get(rec, req)
		}},
		{"complete task", func(rec *httptest.ResponseRecorder) {
			req := authedRequest("POST", "/api/goals/x/tasks/y/complete", nil, malloryAC)
			req.SetPathValue("id", itoa(g.ID))
			req.SetPathValue("task_id", itoa(g.Tasks[0].ID))
			f.handler.CompleteTask(rec, req)
		}},
		{"add task", func(rec *httptest.ResponseRecorder) {
			body, _ := json.Marshal(addTaskRequest{Title: "extra"})
			req := authedRequest("POST", "/api/goals/x/tasks", body, malloryAC)
			req.SetPathValue("id", itoa(g.ID))
			f.handler.AddTask(rec, req)
		}},
		{"delete", func(rec *httptest.ResponseRecorder) {
			req := authedRequest("DELETE", "/api/goals/x", nil, malloryAC)
			req.SetPathValue("id", itoa(g.ID))
			f.handler.Delete(rec, req)
		}},
	}
	for _, a := range attempts {
		t.Run(a.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.do(rec)
			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
		})
	}

	// Nothing was mutated or credited.
	stored, err := f.goals.GetByID(context.Background(), g.ID)
	if err != nil || stored == nil {
		t.Fatalf("load goal: %v", err)
	}
	if stored.Tasks[0].IsCompleted || len(stored.Tasks) != 1 {
		t.Errorf("goal mutated by forbidden requests: %+v", stored.Tasks)
	}
	m, err := f.members.GetByID(context.Background(), mallory.ID)
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	if m.Stars != 0 || m.Coins != 0 {
		t.Errorf("intruder credited %d stars / %d coins, want 0/0", m.Stars, m.Coins)
	}
}

func TestFamilyGoalNeedsMembership(t *testing.T) {
	f := setupGoalHandler(t)
	famA, err := f.families.Create(context.Background(), "Lovelace")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	famB, err := f.families.Create(context.Background(), "Babbage")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	ada := f.newMember(t, "Ada", &famA.ID)
	charles := f.newMember(t, "Charles", &famB.ID)

	g := f.createGoal(t, auth.AuthContext{MemberID: ada.ID, FamilyID: famA.ID, Role: "child"}, createGoalRequest{
		Type:  model.GoalTypeFamily,
		Title: "Garden weekend",
		Tasks: []taskRequest{
			{Title: "Weed the beds", Rewards: model.Rewards{Stars: 5}},
		},
	})

	req := authedRequest("POST", "/api/goals/x/tasks/y/complete", nil,
		auth.AuthContext{MemberID: charles.ID, FamilyID: famB.ID, Role: "child"})
	req.SetPathValue("id", itoa(g.ID))
	req.SetPathValue("task_id", itoa(g.Tasks[0].ID))
	rec := httptest.NewRecorder()
	f.handler.CompleteTask(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestCompleteTaskPushesToFamily(t *testing.T) {
	sender := &captureSender{}
	f := setupGoalHandlerWithSender(t, sender)
	fam, err := f.families.Create(context.Background(), "Lovelace")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	ada := f.newMember(t, "Ada", &fam.ID)
	byron := f.newMember(t, "Byron", &fam.ID)
	if _, err := f.pushes.Subscribe(context.Background(), byron.ID, "ep-byron", "p256dh", "auth", "ua"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ac := auth.AuthContext{MemberID: ada.ID, FamilyID: fam.ID, Role: "child"}
	g := f.createGoal(t, ac, createGoalRequest{
		Type:  model.GoalTypePersonal,
		Title: "Read every night",
		Tasks: []taskRequest{
			{Title: "Monday", Rewards: model.Rewards{Stars: 2, Coins: 1}},
			{Title: "Tuesday", Rewards: model.Rewards{Stars: 2, Coins: 1}},
		},
	})

	req := authedRequest("POST", "/api/goals/x/tasks/y/complete", nil, ac)
	req.SetPathValue("id", itoa(g.ID))
	req.SetPathValue("task_id", itoa(g.Tasks[0].ID))
	rec := httptest.NewRecorder()
	f.handler.CompleteTask(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d payloads, want 1", len(sender.sent))
	}
	if sender.targets[0] != "ep-byron" {
		t.Errorf("target = %q, want ep-byron", sender.targets[0])
	}
	got := sender.sent[0]
	if got.Event != model.NotifTypeTaskCompleted {
		t.Errorf("event = %q, want %q", got.Event, model.NotifTypeTaskCompleted)
	}
	if got.GoalID != g.ID || got.Stars != 2 || got.Coins != 1 {
		t.Errorf("payload = %+v, want goal %d with 2 stars and 1 coin", got, g.ID)
	}
}
