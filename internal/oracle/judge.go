package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/farmshare/internal/agents"
)

// Judge answers the four structured queries through the model client.
// Every prompt demands a JSON object, and every response is validated
// before it leaves this package. Wrap a Judge in a Boundary before handing
// it to a negotiation session.
type Judge struct {
	Client *Client
}

var valueDescriptions = map[agents.ValueType]string{
	agents.ValueEgalitarian: "You believe everyone is equal and resources should be shared fairly, without privilege.",
	agents.ValueNeedsBased:  "You believe resources should follow real need, looking after large families with heavy burdens.",
	agents.ValueMeritBased:  "You believe those who work more deserve more; distribution should reward labor contribution.",
	agents.ValueAltruistic:  "You put others first and willingly give up your own share to protect struggling families.",
	agents.ValuePragmatic:   "You are flexible and practical, adjusting your position to whatever the situation calls for.",
}

func (j *Judge) systemPrompt(a *agents.Agent) string {
	return fmt.Sprintf(
		`You are the head of the %s family in a community farm: %d members, %d of them able to work.
%s
The community meets every round to divide the harvest. Answer every question ONLY with the requested JSON object, no extra text.`,
		a.FamilyName, a.Members, a.LaborForce, valueDescriptions[a.ValueType],
	)
}

func (j *Judge) PrinciplePreferences(ctx context.Context, a *agents.Agent, pc PrincipleContext) (PrincipleResponse, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d. The pool holds %.1f units of grain for %d families.\n",
		pc.Round, pc.PoolTotal, pc.FamilyCount)
	fmt.Fprintf(&b, "Which distribution principles matter most to your family? Choose up to 3, most important first, from: %s.\n",
		strings.Join(pc.CanonicalSet, ", "))
	b.WriteString(`Respond with JSON: {"principles": ["...", "..."]}`)

	text, err := j.Client.Complete(ctx, j.systemPrompt(a), b.String(), 300)
	if err != nil {
		return PrincipleResponse{}, err
	}
	var resp PrincipleResponse
	if err := parseJSONObject(text, &resp); err != nil {
		return PrincipleResponse{}, err
	}
	if len(resp.Ranked) == 0 {
		return PrincipleResponse{}, fmt.Errorf("no principles in response")
	}
	if len(resp.Ranked) > 3 {
		resp.Ranked = resp.Ranked[:3]
	}
	return resp, nil
}

func (j *Judge) Persuade(ctx context.Context, advocate *agents.Agent, pc PersuasionContext) (PersuasionResponse, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d. Your family and %d others back the principle %q, but the community has not adopted it.\n",
		pc.Round, len(pc.Supporters)-1, pc.Principle)
	b.WriteString("Make a short appeal (2-3 sentences) to win over the undecided families.\n")
	b.WriteString(`Respond with JSON: {"argument": "..."}`)

	text, err := j.Client.Complete(ctx, j.systemPrompt(advocate), b.String(), 300)
	if err != nil {
		return PersuasionResponse{}, err
	}
	var resp PersuasionResponse
	if err := parseJSONObject(text, &resp); err != nil {
		return PersuasionResponse{}, err
	}
	if resp.Argument == "" {
		return PersuasionResponse{}, fmt.Errorf("empty argument in response")
	}
	return resp, nil
}

func (j *Judge) AllocationOpinion(ctx context.Context, a *agents.Agent, oc OpinionContext) (Opinion, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d, method %q. The proposed plan gives your family %.2f units of grain; your survival need is %.2f. The full pool is %.1f.\n",
		oc.Round, oc.Method, oc.Allocated, oc.Need, oc.PoolTotal)
	b.WriteString("Do you object to your share? If so, what amount did you expect?\n")
	b.WriteString(`Respond with JSON: {"has_objection": true|false, "expected_amount": number, "reason": "..."}`)

	text, err := j.Client.Complete(ctx, j.systemPrompt(a), b.String(), 300)
	if err != nil {
		return Opinion{}, err
	}
	var resp Opinion
	if err := parseJSONObject(text, &resp); err != nil {
		return Opinion{}, err
	}
	if resp.ExpectedAmount < 0 {
		return Opinion{}, fmt.Errorf("negative expected amount %.2f", resp.ExpectedAmount)
	}
	return resp, nil
}

func (j *Judge) SatisfactionRating(ctx context.Context, a *agents.Agent, sc SatisfactionContext) (Satisfaction, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d, feedback round %d. The final plan gives your family %.2f units of grain; your survival need is %.2f; the community average share is %.2f.\n",
		sc.Round, sc.FeedbackRound, sc.Allocated, sc.Need, sc.AverageShare)
	b.WriteString("Rate your satisfaction from 1 (very unhappy) to 5 (very happy). If you are unsatisfied, name the amount you would consider fair.\n")
	b.WriteString(`Respond with JSON: {"score": number, "adjustment_target": number or null, "comment": "..."}`)

	text, err := j.Client.Complete(ctx, j.systemPrompt(a), b.String(), 300)
	if err != nil {
		return Satisfaction{}, err
	}
	var resp Satisfaction
	if err := parseJSONObject(text, &resp); err != nil {
		return Satisfaction{}, err
	}
	if resp.Score < 1 || resp.Score > 5 {
		return Satisfaction{}, fmt.Errorf("score %.1f outside [1,5]", resp.Score)
	}
	return resp, nil
}

// parseJSONObject finds the JSON object in a response (the model might wrap
// it in explanation text) and unmarshals it.
func parseJSONObject(text string, out any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
