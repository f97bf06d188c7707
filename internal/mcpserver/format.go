package mcpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

func formatChildList(raw json.RawMessage) (string, error) {
	var resp struct {
		Children []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Age           int    `json:"age"`
			DailyLimitMin int64  `json:"dailyLimitMin"`
		} `json:"children"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Children) == 0 {
		return "No children registered yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d child profile(s):\n\n", len(resp.Children))
	for i, c := range resp.Children {
		fmt.Fprintf(&sb, "%d. %s (age %d)\n", i+1, c.Name, c.Age)
		fmt.Fprintf(&sb, "   ID: %s | Daily limit: %d min\n", c.ID, c.DailyLimitMin)
		if i < len(resp.Children)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatDashboard(raw json.RawMessage) (string, error) {
	var resp struct {
		Children []struct {
			Child struct {
				Name          string `json:"name"`
				DailyLimitMin int64  `json:"dailyLimitMin"`
			} `json:"child"`
			TodayMinutes     int64 `json:"todayMinutes"`
			WeeklyMinutes    int64 `json:"weeklyMinutes"`
			LatestAssessment *struct {
				Score float64 `json:"score"`
				Tier  string  `json:"tier"`
			} `json:"latestAssessment"`
			Streak     int `json:"streak"`
			BadgeCount int `json:"badgeCount"`
		} `json:"children"`
		UnreadCount int `json:"unreadCount"`
		Summary     struct {
			TotalChildren     int     `json:"totalChildren"`
			HighRiskCount     int     `json:"highRiskCount"`
			AverageScreenTime float64 `json:"averageScreenTime"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Family dashboard:\n\n")
	for _, o := range resp.Children {
		fmt.Fprintf(&sb, "%s\n", o.Child.Name)
		fmt.Fprintf(&sb, "  Today: %d/%d min | Week: %d min\n",
			o.TodayMinutes, o.Child.DailyLimitMin, o.WeeklyMinutes)
		if o.LatestAssessment != nil {
			fmt.Fprintf(&sb, "  Risk: %.0f/100 (%s)\n",
				o.LatestAssessment.Score, o.LatestAssessment.Tier)
		} else {
			sb.WriteString("  Risk: not assessed yet\n")
		}
		fmt.Fprintf(&sb, "  Streak: %d day(s) | Badges: %d\n\n", o.Streak, o.BadgeCount)
	}
	fmt.Fprintf(&sb, "Children: %d | High risk: %d | Avg screen time today: %.0f min | Unread alerts: %d",
		resp.Summary.TotalChildren, resp.Summary.HighRiskCount,
		resp.Summary.AverageScreenTime, resp.UnreadCount)
	return sb.String(), nil
}

type assessmentInfo struct {
	Score       float64            `json:"score"`
	Tier        string             `json:"tier"`
	Explanation string             `json:"explanation"`
	Factors     map[string]float64 `json:"factors"`
	CreatedAt   string             `json:"createdAt"`
}

func formatAssessment(raw json.RawMessage) (string, error) {
	var resp struct {
		Assessment assessmentInfo `json:"assessment"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	a := resp.Assessment

	var sb strings.Builder
	fmt.Fprintf(&sb, "Risk score: %.1f/100 (%s)\n\n", a.Score, a.Tier)
	fmt.Fprintf(&sb, "%s\n", a.Explanation)
	if len(a.Factors) > 0 {
		sb.WriteString("\nFactors:\n")
		for _, name := range []string{
			"screenTime", "nightUsage", "socialMediaRatio",
			"appSwitching", "sentimentVolatility", "rewardDependency",
		} {
			if v, ok := a.Factors[name]; ok {
				fmt.Fprintf(&sb, "  %s: %.0f\n", name, v)
			}
		}
	}
	return sb.String(), nil
}

func formatAssessmentList(raw json.RawMessage) (string, error) {
	var resp struct {
		Assessments []assessmentInfo `json:"assessments"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Assessments) == 0 {
		return "No risk assessments recorded yet.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d assessment(s), newest first:\n\n", len(resp.Assessments))
	for i, a := range resp.Assessments {
		fmt.Fprintf(&sb, "%d. %.1f/100 (%s)", i+1, a.Score, a.Tier)
		if a.CreatedAt != "" {
			fmt.Fprintf(&sb, " - %s", a.CreatedAt)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func formatGamification(raw json.RawMessage) (string, error) {
	var resp struct {
		State struct {
			Points        int64 `json:"points"`
			Streak        int   `json:"streak"`
			LongestStreak int   `json:"longestStreak"`
			Level         int   `json:"level"`
		} `json:"state"`
		Progress struct {
			Percent int `json:"percent"`
		} `json:"progress"`
		Badges []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"badges"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Level %d (%d%% to next) | %d points\n",
		resp.State.Level, resp.Progress.Percent, resp.State.Points)
	fmt.Fprintf(&sb, "Streak: %d day(s) under the limit (best: %d)\n",
		resp.State.Streak, resp.State.LongestStreak)
	if len(resp.Badges) == 0 {
		sb.WriteString("No badges unlocked yet.")
	} else {
		fmt.Fprintf(&sb, "\nBadges (%d):\n", len(resp.Badges))
		for _, b := range resp.Badges {
			fmt.Fprintf(&sb, "  %s - %s\n", b.Name, b.Description)
		}
	}
	return sb.String(), nil
}

func formatAlertList(raw json.RawMessage) (string, error) {
	var resp struct {
		Alerts []struct {
			Severity  string `json:"severity"`
			Title     string `json:"title"`
			Message   string `json:"message"`
			IsRead    bool   `json:"isRead"`
			CreatedAt string `json:"createdAt"`
		} `json:"alerts"`
		UnreadCount int `json:"unreadCount"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	if len(resp.Alerts) == 0 {
		return "No alerts.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d alert(s), %d unread:\n\n", len(resp.Alerts), resp.UnreadCount)
	for i, a := range resp.Alerts {
		marker := " "
		if !a.IsRead {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%d.%s [%s] %s\n", i+1, marker, a.Severity, a.Title)
		if a.Message != "" {
			fmt.Fprintf(&sb, "    %s\n", a.Message)
		}
	}
	return sb.String(), nil
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
