package mood

type Tier string

const (
	TierCritical  Tier = "critical"
	TierSupport   Tier = "support"
	TierImproving Tier = "improving"
	TierMaintain  Tier = "maintain"
	TierThriving  Tier = "thriving"
	TierExcellent Tier = "excellent"
)

const (
	criticalBelow = 1.5
	lowBelow      = 2.5
	moderateBelow = 3.5
	thrivingBelow = 4.5
)

type Advice struct {
	Tier          Tier     `json:"type"`
	Message       string   `json:"message"`
	Suggestions   []string `json:"suggestions"`
	Encouragement string   `json:"encouragement"`
}

// AdviceFor picks the advice payload for an overall average and trend. A low
// average without an improving trend gets the support payload.
func AdviceFor(avg float64, trend Trend) Advice {
	switch {
	case avg < criticalBelow:
		return criticalAdvice.clone()
	case avg < lowBelow:
		if trend == Improving {
			return lowImprovingAdvice.clone()
		}
		return supportAdvice.clone()
	case avg < moderateBelow:
		switch trend {
		case Improving:
			return moderateImprovingAdvice.clone()
		case Declining:
			return supportAdvice.clone()
		default:
			return maintainAdvice.clone()
		}
	case avg < thrivingBelow:
		return thrivingAdvice.clone()
	default:
		return excellentAdvice.clone()
	}
}

func (a Advice) clone() Advice {
	a.Suggestions = append([]string(nil), a.Suggestions...)
	return a
}

var criticalAdvice = Advice{
	Tier:    TierCritical,
	Message: "I'm concerned about how you're feeling. Please reach out for immediate support. You don't have to go through this alone.",
	Suggestions: []string{
		"Contact a mental health professional",
		"Reach out to someone you trust immediately",
		"Use the crisis resources in your menu",
	},
	Encouragement: "You are important. Your feelings are valid. Help is available and people care about you. Please reach out now.",
}

var lowImprovingAdvice = Advice{
	Tier:    TierImproving,
	Message: "I see you're starting to feel a bit better - that's a positive sign! Let's keep building on this progress.",
	Suggestions: []string{
		"Keep doing what's helping - you're on the right track",
		"Set one small achievable goal for today",
		"Try a 10-minute walk in fresh air",
		"Journal about one thing that went well today",
	},
	Encouragement: "You're making progress! Every small step forward matters. I'm proud of you for continuing to try. Keep going! 💪",
}

var moderateImprovingAdvice = Advice{
	Tier:    TierImproving,
	Message: "Great progress! You're moving in a positive direction. Let's keep this momentum going!",
	Suggestions: []string{
		"🎉 Celebrate your progress - you deserve recognition!",
		"Keep up your healthy routines and habits",
		"Continue any mindfulness or relaxation practices",
	},
	Encouragement: "You're doing amazing! The effort you're putting in is paying off. Keep believing in yourself - you're stronger than you know! 🌟",
}

var supportAdvice = Advice{
	Tier:    TierSupport,
	Message: "I notice things have been tougher recently. Let's work on getting you back to feeling better.",
	Suggestions: []string{
		"Ask for help - it's a sign of strength, not weakness",
		"Schedule something to look forward to",
		"Challenge negative thoughts with evidence",
	},
	Encouragement: "Ups and downs are normal in recovery. This setback doesn't erase your progress. You have the strength to bounce back. 💙",
}

var maintainAdvice = Advice{
	Tier:    TierMaintain,
	Message: "You're maintaining a steady balance. That's valuable - let's keep you here and continue building resilience.",
	Suggestions: []string{
		"Focus on small, consistent healthy habits",
		"Practice gratitude - write down 3 things daily",
		"Nurture your support network",
	},
	Encouragement: "Stability is progress! You're managing well. Keep taking care of yourself - you're worth it! 🌻",
}

var thrivingAdvice = Advice{
	Tier:    TierThriving,
	Message: "You're doing really well! Your positive momentum shows the work you're putting into your wellbeing.",
	Suggestions: []string{
		"Acknowledge how far you've come - be proud!",
		"Consider helping others - it boosts wellbeing",
		"Keep challenging yourself to grow",
		"Explore new activities that bring joy",
	},
	Encouragement: "You're thriving! Your dedication to your mental health is inspiring. Keep up the excellent work - you're an example of resilience! 🌈✨",
}

var excellentAdvice = Advice{
	Tier:    TierExcellent,
	Message: "Wow! You're in an excellent place mentally. Your consistent effort has paid off beautifully!",
	Suggestions: []string{
		"Set new personal growth goals",
		"Continue your self-care practices religiously",
		"Reflect on what's working and document it",
		"Celebrate yourself - you've earned it!",
	},
	Encouragement: "You're absolutely crushing it! Your mental health journey is an inspiration. Remember this feeling and the work that got you here. You're proof that healing and growth are possible! 🎉🌟",
}
