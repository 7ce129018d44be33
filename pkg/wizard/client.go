package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a thin HTTP client for the assessment wizard API. All methods
// return the decoded data payload or an *APIError carrying the server's
// status code and message.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Errors     json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wizard api: %d %s", e.StatusCode, e.Message)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

// Assessment mirrors the server's assessment payload.
type Assessment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CurrentStep int        `json:"currentStep"`
	ProgressPct int        `json:"progressPercentage"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

type Draft struct {
	AssessmentID string                     `json:"assessmentId"`
	DraftData    map[string]json.RawMessage `json:"draftData"`
	LastSavedAt  *time.Time                 `json:"lastSavedAt"`
}

type AssessmentDetail struct {
	Assessment
	Draft          *Draft `json:"draft,omitempty"`
	CompletedSteps []int  `json:"completedSteps"`
}

type Progress struct {
	AssessmentID   string     `json:"assessmentId"`
	CurrentStep    int        `json:"currentStep"`
	ProgressPct    int        `json:"progressPercentage"`
	Status         string     `json:"status"`
	CompletedSteps []int      `json:"completedSteps"`
	LastSavedAt    *time.Time `json:"lastSavedAt,omitempty"`
}

type SaveStepRequest struct {
	StepNumber   int                    `json:"step_number"`
	Section      string                 `json:"section"`
	Answers      map[string]interface{} `json:"answers"`
	Competencies []Competency           `json:"competencies,omitempty"`
	IsAutoSave   bool                   `json:"is_auto_save"`
}

type Competency struct {
	SkillName           string `json:"skillName"`
	SelfAssessmentLevel int    `json:"selfAssessmentLevel"`
	SelfInterestLevel   int    `json:"selfInterestLevel"`
	Category            string `json:"category,omitempty"`
	Context             string `json:"context,omitempty"`
}

type SaveStepResult struct {
	Assessment *Assessment `json:"assessment,omitempty"`
	Draft      *Draft      `json:"draft,omitempty"`
	Committed  bool        `json:"committed"`
}

func (c *Client) CreateAssessment(ctx context.Context, title, assessmentType string) (*Assessment, error) {
	body := map[string]string{"title": title}
	if assessmentType != "" {
		body["assessment_type"] = assessmentType
	}

	var out Assessment
	if err := c.do(ctx, http.MethodPost, "/api/assessments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssessment(ctx context.Context, id string) (*AssessmentDetail, error) {
	var out AssessmentDetail
	if err := c.do(ctx, http.MethodGet, "/api/assessments/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveStep(ctx context.Context, id string, req *SaveStepRequest) (*SaveStepResult, error) {
	var out SaveStepResult
	if err := c.do(ctx, http.MethodPost, "/api/assessments/"+id+"/wizard/save-step", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetProgress(ctx context.Context, id string) (*Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, "/api/assessments/"+id+"/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitAssessment(ctx context.Context, id string) (*Assessment, error) {
	var out Assessment
	if err := c.do(ctx, http.MethodPost, "/api/assessments/"+id+"/submit", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(blob)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("wizard api: decoding response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || env.Status != "success" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			Errors:     env.Errors,
		}
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
