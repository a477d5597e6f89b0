package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fernwood/starquest/internal/model"
)

// Sender sends one payload to one subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// SubscriptionStore is the slice of the push store the notifier needs.
type SubscriptionStore interface {
	ListByFamily(ctx context.Context, familyID int64) ([]model.PushSubscription, error)
	ListByMember(ctx context.Context, memberID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Notifier fans reward events out to a family's push subscriptions.
// Expired subscriptions are pruned as sends fail; other send errors are
// logged and never surfaced to the caller, a completed goal must not
// fail because a phone is offline.
type Notifier struct {
	sender Sender
	subs   SubscriptionStore
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs SubscriptionStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		subs:   subs,
		logger: logger.With("component", "push"),
	}
}

// GoalCompleted notifies every family subscription except the completer's own.
func (n *Notifier) GoalCompleted(ctx context.Context, familyID int64, completer *model.Member, g *model.Goal) {
	n.fanOut(ctx, familyID, completer.ID, Payload{
		Event:  model.NotifTypeGoalCompleted,
		Title:  "Goal Completed",
		Body:   fmt.Sprintf("%s finished %q", completer.Name, g.Title),
		URL:    "/goals",
		GoalID: g.ID,
		Stars:  g.Rewards.Stars,
		Coins:  g.Rewards.Coins,
	})
}

// AchievementUnlocked notifies the member's own devices.
func (n *Notifier) AchievementUnlocked(ctx context.Context, memberID int64, a *model.Achievement) {
	subs, err := n.subs.ListByMember(ctx, memberID)
	if err != nil {
		n.logger.Error("list member subscriptions", "error", err)
		return
	}
	n.send(ctx, subs, Payload{
		Event: model.NotifTypeAchievementUnlocked,
		Title: "Achievement Unlocked",
		Body:  fmt.Sprintf("You earned %q", a.Title),
		URL:   "/achievements",
		Stars: a.StarsReward,
		Coins: a.CoinsReward,
	})
}

// TaskCompleted notifies the rest of the family that a task was checked off.
func (n *Notifier) TaskCompleted(ctx context.Context, familyID int64, completer *model.Member, g *model.Goal, task *model.Task) {
	n.fanOut(ctx, familyID, completer.ID, Payload{
		Event:  model.NotifTypeTaskCompleted,
		Title:  "Task Done",
		Body:   fmt.Sprintf("%s checked off %q", completer.Name, task.Title),
		URL:    "/goals",
		GoalID: g.ID,
		Stars:  task.Rewards.Stars,
		Coins:  task.Rewards.Coins,
	})
}

func (n *Notifier) fanOut(ctx context.Context, familyID, excludeMemberID int64, payload Payload) {
	if familyID == 0 {
		return
	}
	subs, err := n.subs.ListByFamily(ctx, familyID)
	if err != nil {
		n.logger.Error("list family subscriptions", "error", err)
		return
	}

	var recipients []model.PushSubscription
	for _, sub := range subs {
		if sub.MemberID == excludeMemberID {
			continue
		}
		recipients = append(recipients, sub)
	}
	n.send(ctx, recipients, payload)
}

func (n *Notifier) send(ctx context.Context, subs []model.PushSubscription, payload Payload) {
	for i := range subs {
		sub := &subs[i]
		if err := n.sender.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					n.logger.Error("prune expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send notification", "event", payload.Event, "error", err)
		}
	}
}
