package push

import (
	"encoding/json"
	"testing"
)

func TestPayloadJSON(t *testing.T) {
	p := Payload{
		Event:  "task_completed",
		Title:  "Task Done",
		Body:   "Ada checked off \"Dishes\"",
		URL:    "/goals",
		GoalID: 7,
		Stars:  2,
		Coins:  1,
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got["event"] != "task_completed" {
		t.Errorf("event = %v, want task_completed", got["event"])
	}
	if got["goal_id"].(float64) != 7 {
		t.Errorf("goal_id = %v, want 7", got["goal_id"])
	}
	if got["stars"].(float64) != 2 {
		t.Errorf("stars = %v, want 2", got["stars"])
	}
}

func TestPayloadJSONOmitsZeroRewards(t *testing.T) {
	p := Payload{Event: "rank_changed", Title: "Rank Changed", Body: "You moved up"}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	for _, key := range []string{"goal_id", "stars", "coins", "url"} {
		if _, ok := got[key]; ok {
			t.Errorf("payload includes %q for a zero value", key)
		}
	}
}
