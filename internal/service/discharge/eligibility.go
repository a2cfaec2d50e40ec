package discharge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/practice-api/internal/model"
)

const (
	// GoalCompletionThreshold is the share of achieved goals that qualifies a patient.
	GoalCompletionThreshold = 0.8
	// recentWindow is how many of the latest records the narrative check reads.
	recentWindow = 3
	// recentRequired is how many of them must mention progress.
	recentRequired = 2

	ReasonArchived    = "Patient is archived"
	ReasonNotMet      = "Discharge criteria not met"
	ReasonNotEligible = "No discharge criteria met"
)

var progressPhrases = []string{
	"significant improvement",
	"goals achieved",
	"ready for discharge",
}

// Evaluate runs the four discharge criteria against a patient and their records. Every matching
// criterion is listed; Reason is taken from the last one that matched.
func Evaluate(p *model.Patient, records []*model.TreatmentRecord, now time.Time) *model.Eligibility {
	if p.Status.Archived() {
		return &model.Eligibility{Reason: ReasonArchived, Criteria: []string{}}
	}

	result := &model.Eligibility{Reason: ReasonNotEligible, Criteria: []string{}}
	match := func(criterion, reason string) {
		result.ShouldDischarge = true
		result.Criteria = append(result.Criteria, criterion)
		result.Reason = reason
	}

	target := p.DischargeCriteria.EffectiveTargetSessions()
	if completed := countCompleted(records); completed >= target {
		match(
			fmt.Sprintf("Session target reached (%d of %d sessions)", completed, target),
			fmt.Sprintf("Completed %d of %d target sessions", completed, target),
		)
	}

	if td := p.DischargeCriteria.TargetDate; td != nil && !now.Before(*td) {
		match(
			fmt.Sprintf("Target discharge date reached (%s)", td.Format("2006-01-02")),
			"Target discharge date has been reached",
		)
	}

	if total := len(p.TreatmentGoals); total > 0 {
		achieved := 0
		for _, g := range p.TreatmentGoals {
			if g.Status == model.GoalStatusAchieved {
				achieved++
			}
		}
		if float64(achieved)/float64(total) >= GoalCompletionThreshold {
			match(
				fmt.Sprintf("Treatment goals achieved (%d of %d)", achieved, total),
				fmt.Sprintf("Achieved %d of %d treatment goals", achieved, total),
			)
		}
	}

	if n := progressMentions(records); n >= recentRequired {
		match(
			fmt.Sprintf("Recent sessions report discharge readiness (%d of last %d)", n, recentWindow),
			"Recent session progress indicates readiness for discharge",
		)
	}

	return result
}

func countCompleted(records []*model.TreatmentRecord) int {
	n := 0
	for _, r := range records {
		if r.Completed() {
			n++
		}
	}
	return n
}

// progressMentions counts the most recent records whose progress note carries a readiness phrase.
func progressMentions(records []*model.TreatmentRecord) int {
	recent := make([]*model.TreatmentRecord, len(records))
	copy(recent, records)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].SessionDate.After(recent[j].SessionDate) })
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}

	n := 0
	for _, r := range recent {
		progress := strings.ToLower(r.Progress)
		for _, phrase := range progressPhrases {
			if strings.Contains(progress, phrase) {
				n++
				break
			}
		}
	}
	return n
}
