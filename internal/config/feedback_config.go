package config

type FeedbackConfig interface {
	GetFeedbackAPIURL() string
	GetFeedbackAPIKey() string
	GetFeedbackMaxRetries() uint
}

type Feedback struct{}

var _ FeedbackConfig = Feedback{}

func (Feedback) GetFeedbackAPIURL() string {
	return GetEnv("FEEDBACK_API_URL", "https://api.feedback.example.com/v1")
}

func (Feedback) GetFeedbackAPIKey() string {
	return GetEnv("FEEDBACK_API_KEY", "")
}

func (Feedback) GetFeedbackMaxRetries() uint {
	n := GetEnvInt("FEEDBACK_MAX_RETRIES", 3)
	if n < 1 {
		return 1
	}
	return uint(n)
}
