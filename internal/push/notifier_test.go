package push

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/fernwood/starquest/internal/model"
)

type fakeSender struct {
	sent    []Payload
	targets []string
	failFor map[string]error
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if err, ok := f.failFor[sub.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, payload)
	f.targets = append(f.targets, sub.Endpoint)
	return nil
}

type fakeSubs struct {
	byFamily map[int64][]model.PushSubscription
	byMember map[int64][]model.PushSubscription
	deleted  []string
}

func (f *fakeSubs) ListByFamily(_ context.Context, familyID int64) ([]model.PushSubscription, error) {
	return f.byFamily[familyID], nil
}

func (f *fakeSubs) ListByMember(_ context.Context, memberID int64) ([]model.PushSubscription, error) {
	return f.byMember[memberID], nil
}

func (f *fakeSubs) DeleteByEndpoint(_ context.Context, endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func newTestNotifier(sender *fakeSender, subs *fakeSubs) *Notifier {
	return NewNotifier(sender, subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGoalCompletedExcludesCompleter(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{byFamily: map[int64][]model.PushSubscription{
		1: {
			{MemberID: 10, Endpoint: "ep-completer"},
			{MemberID: 20, Endpoint: "ep-sibling"},
		},
	}}

	ada := &model.Member{ID: 10, Name: "Ada"}
	g := &model.Goal{ID: 5, Title: "Read all week", Rewards: model.Rewards{Stars: 10, Coins: 5}}
	newTestNotifier(sender, subs).GoalCompleted(context.Background(), 1, ada, g)

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d payloads, want 1", len(sender.sent))
	}
	if sender.targets[0] != "ep-sibling" {
		t.Errorf("target = %q, want ep-sibling", sender.targets[0])
	}
	if sender.sent[0].Event != model.NotifTypeGoalCompleted {
		t.Errorf("event = %q, want %q", sender.sent[0].Event, model.NotifTypeGoalCompleted)
	}
	if sender.sent[0].GoalID != 5 || sender.sent[0].Stars != 10 || sender.sent[0].Coins != 5 {
		t.Errorf("payload = %+v, want goal 5 with 10 stars and 5 coins", sender.sent[0])
	}
}

func TestGoalCompletedNoFamily(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{}

	ada := &model.Member{ID: 10, Name: "Ada"}
	g := &model.Goal{ID: 5, Title: "Solo goal"}
	newTestNotifier(sender, subs).GoalCompleted(context.Background(), 0, ada, g)

	if len(sender.sent) != 0 {
		t.Errorf("sent = %d payloads, want 0", len(sender.sent))
	}
}

func TestAchievementUnlockedTargetsMember(t *testing.T) {
	sender := &fakeSender{}
	subs := &fakeSubs{byMember: map[int64][]model.PushSubscription{
		10: {{MemberID: 10, Endpoint: "ep-phone"}, {MemberID: 10, Endpoint: "ep-tablet"}},
	}}

	a := &model.Achievement{ID: 3, Title: "Bookworm", StarsReward: 2}
	newTestNotifier(sender, subs).AchievementUnlocked(context.Background(), 10, a)

	if len(sender.sent) != 2 {
		t.Fatalf("sent = %d payloads, want 2", len(sender.sent))
	}
	if sender.sent[0].Event != model.NotifTypeAchievementUnlocked {
		t.Errorf("event = %q", sender.sent[0].Event)
	}
	if sender.sent[0].Stars != 2 {
		t.Errorf("stars = %d, want 2", sender.sent[0].Stars)
	}
}

func TestExpiredSubscriptionPruned(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{"ep-stale": ErrExpired}}
	subs := &fakeSubs{byFamily: map[int64][]model.PushSubscription{
		1: {
			{MemberID: 20, Endpoint: "ep-stale"},
			{MemberID: 30, Endpoint: "ep-live"},
		},
	}}

	ada := &model.Member{ID: 10, Name: "Ada"}
	g := &model.Goal{ID: 7, Title: "Chores"}
	task := &model.Task{ID: 2, Title: "Dishes", Rewards: model.Rewards{Stars: 1}}
	newTestNotifier(sender, subs).TaskCompleted(context.Background(), 1, ada, g, task)

	if len(subs.deleted) != 1 || subs.deleted[0] != "ep-stale" {
		t.Errorf("deleted = %v, want [ep-stale]", subs.deleted)
	}
	if len(sender.sent) != 1 {
		t.Errorf("sent = %d payloads, want 1", len(sender.sent))
	}
}
