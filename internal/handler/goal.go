package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwood/starquest/internal/auth"
	"github.com/fernwood/starquest/internal/goal"
	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/push"
	"github.com/fernwood/starquest/internal/store"
	"github.com/fernwood/starquest/internal/websocket"
)

type GoalHandler struct {
	goals    *store.GoalStore
	engine   *goal.Engine
	hub      *websocket.Hub
	notifier *push.Notifier
	logger   *slog.Logger
}

func NewGoalHandler(gs *store.GoalStore, engine *goal.Engine, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{
		goals:    gs,
		engine:   engine,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With("component", "goal"),
	}
}

type taskRequest struct {
	Title   string        `json:"title"`
	Rewards model.Rewards `json:"rewards"`
}

type createGoalRequest struct {
	Type        string        `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Rewards     model.Rewards `json:"rewards"`
	Tasks       []taskRequest `json:"tasks"`
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := goal.ValidateRewards(req.Rewards); err != nil {
		writeGoalError(w, err)
		return
	}
	for _, t := range req.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			writeError(w, http.StatusBadRequest, "task titles must not be empty")
			return
		}
		if err := goal.ValidateRewards(t.Rewards); err != nil {
			writeGoalError(w, err)
			return
		}
	}

	ac, _ := auth.FromContext(r.Context())
	g := &model.Goal{
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Rewards:     req.Rewards,
	}
	switch req.Type {
	case model.GoalTypePersonal:
		g.OwnerID = &ac.MemberID
	case model.GoalTypeFamily:
		if ac.FamilyID == 0 {
			writeError(w, http.StatusBadRequest, "join a family before creating family goals")
			return
		}
		g.FamilyID = &ac.FamilyID
	default:
		writeError(w, http.StatusBadRequest, "type must be personal or family")
		return
	}

	for _, t := range req.Tasks {
		g.Tasks = append(g.Tasks, model.Task{
			Title:   strings.TrimSpace(t.Title),
			Rewards: t.Rewards,
		})
	}

	created, err := h.goals.Create(r.Context(), g)
	if err != nil {
		h.logger.Error("create goal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// authorizedGoal loads the goal named by the {id} path segment and
// verifies the caller may act on it: the owner for a personal goal, any
// member of the goal's family for a family goal. It writes the error
// response itself when the check fails.
func (h *GoalHandler) authorizedGoal(w http.ResponseWriter, r *http.Request, ac auth.AuthContext) (*model.Goal, bool) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid goal id")
		return nil, false
	}
	g, err := h.goals.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("load goal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "goal not found")
		return nil, false
	}
	if !canActOn(g, ac) {
		writeError(w, http.StatusForbidden, "not your goal")
		return nil, false
	}
	return g, true
}

func canActOn(g *model.Goal, ac auth.AuthContext) bool {
	if g.OwnerID != nil {
		return *g.OwnerID == ac.MemberID
	}
	if g.FamilyID != nil {
		return ac.FamilyID != 0 && ac.FamilyID == *g.FamilyID
	}
	return false
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	g, ok := h.authorizedGoal(w, r, ac)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// List returns the caller's personal goals plus their family's goals.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	personal, err := h.goals.ListByOwner(r.Context(), ac.MemberID)
	if err != nil {
		h.logger.Error("list personal goals", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	var family []model.Goal
	if ac.FamilyID != 0 {
		family, err = h.goals.ListByFamily(r.Context(), ac.FamilyID)
		if err != nil {
			h.logger.Error("list family goals", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"personal": personal,
		"family":   family,
	})
}

// CompleteTask marks one task done, grants rewards, and pushes events.
func (h *GoalHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	g, ok := h.authorizedGoal(w, r, ac)
	if !ok {
		return
	}
	taskID, err := idParam(r, "task_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	result, err := h.engine.CompleteTask(r.Context(), g.ID, taskID, ac.MemberID)
	if err != nil {
		writeGoalError(w, err)
		return
	}

	var task *model.Task
	for i := range result.Goal.Tasks {
		if result.Goal.Tasks[i].ID == taskID {
			task = &result.Goal.Tasks[i]
		}
	}
	h.announce(r, ac, result, task)
	writeJSON(w, http.StatusOK, result)
}

type addTaskRequest struct {
	Title   string        `json:"title"`
	Rewards model.Rewards `json:"rewards"`
}

// AddTask appends a task to a goal, reopening the goal if it was done.
func (h *GoalHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	g, ok := h.authorizedGoal(w, r, ac)
	if !ok {
		return
	}
	var req addTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.engine.AddTask(r.Context(), g.ID, req.Title, req.Rewards)
	if err != nil {
		writeGoalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())
	g, ok := h.authorizedGoal(w, r, ac)
	if !ok {
		return
	}
	if err := h.goals.Delete(r.Context(), g.ID); err != nil {
		h.logger.Error("delete goal", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// announce fans a completion out to WebSocket clients and push
// subscriptions. Failures here never affect the HTTP response.
func (h *GoalHandler) announce(r *http.Request, ac auth.AuthContext, result *goal.CompletionResult, task *model.Task) {
	if ac.FamilyID == 0 {
		return
	}
	ctx := r.Context()

	h.hub.BroadcastFamily(ac.FamilyID, websocket.Message{
		Type:     websocket.EventTaskCompleted,
		MemberID: ac.MemberID,
		GoalID:   result.Goal.ID,
	})
	h.hub.BroadcastFamily(ac.FamilyID, websocket.Message{
		Type:     websocket.EventRewardGranted,
		MemberID: ac.MemberID,
		GoalID:   result.Goal.ID,
		Extra: map[string]any{
			"stars": result.Member.Stars,
			"coins": result.Member.Coins,
		},
	})

	if result.GoalCompleted {
		h.hub.BroadcastFamily(ac.FamilyID, websocket.Message{
			Type:     websocket.EventGoalCompleted,
			MemberID: ac.MemberID,
			GoalID:   result.Goal.ID,
		})
		h.hub.BroadcastFamily(ac.FamilyID, websocket.Message{
			Type: websocket.EventRankChanged,
		})
		h.notifier.GoalCompleted(ctx, ac.FamilyID, result.Member, result.Goal)
	} else if task != nil {
		h.notifier.TaskCompleted(ctx, ac.FamilyID, result.Member, result.Goal, task)
	}
	for _, a := range result.Unlocked {
		h.notifier.AchievementUnlocked(ctx, ac.MemberID, a)
	}
}
