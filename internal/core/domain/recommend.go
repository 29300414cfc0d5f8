package domain

// categoryActions maps each attack class to its operator playbook steps.
var categoryActions = map[Category][]string{
	CategoryDDoS: {
		"Enable DDoS protection rules",
		"Consider rate limiting",
		"Contact upstream provider if severe",
	},
	CategoryMalware: {
		"Isolate affected device immediately",
		"Run malware scan on affected systems",
		"Check for data exfiltration",
	},
	CategoryBotnet: {
		"Block command and control communication",
		"Isolate infected devices",
		"Scan network for other infected hosts",
	},
	CategoryExfiltration: {
		"Block outbound connections immediately",
		"Investigate data access logs",
		"Check for compromised credentials",
	},
	CategoryUnauthorized: {
		"Review authentication logs",
		"Check for credential compromise",
		"Enable additional authentication factors",
	},
	CategoryPortScan: {
		"Review firewall rules",
		"Block scanning source if malicious",
		"Check for open unnecessary ports",
	},
	CategoryProtocolAnomaly: {
		"Investigate protocol violation",
		"Check for misconfigured devices",
		"Update network policies",
	},
}

// RecommendedActions returns the operator guidance for a scored detection.
// A benign verdict gets the standing "keep monitoring" advice; high-risk
// verdicts are prefixed with an escalation notice.
func RecommendedActions(category Category, risk float64) []string {
	if category == CategoryNormal || (category == CategoryUnclassified && SeverityForRisk(risk) == SeverityLow) {
		return []string{"Continue normal monitoring"}
	}

	actions := []string{
		"Investigate source IP address",
		"Review recent activity logs",
	}
	actions = append(actions, categoryActions[category]...)

	if risk > 0.8 {
		actions = append([]string{"CRITICAL: Immediate action required"}, actions...)
		actions = append(actions, "Consider network isolation", "Notify security team immediately")
	}
	return actions
}
