package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/tool"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const defaultBaseURL = "https://api.open-meteo.com/v1"

// coords of the supported cities. Open-Meteo takes raw coordinates, so the
// tool only answers for cities it knows how to locate.
var cityCoords = map[string]struct{ lat, lon float64 }{
	"delhi":    {28.6, 77.2},
	"mumbai":   {19.07, 72.87},
	"new york": {40.71, -74.01},
	"london":   {51.50, -0.12},
}

type weatherInput struct {
	City string `json:"city"`
}

type weather struct {
	enabled    bool
	baseURL    string
	httpClient *http.Client
}

// Option configures the weather tool
type Option func(*weather)

// WithBaseURL overrides the Open-Meteo endpoint
func WithBaseURL(url string) Option {
	return func(x *weather) {
		x.baseURL = url
	}
}

// New creates a new weather tool
func New(opts ...Option) *weather {
	x := &weather{
		enabled: true,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Flags returns CLI flags for this tool
func (x *weather) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "weather",
			Sources:     cli.EnvVars("TIDEPOOL_WEATHER"),
			Usage:       "Enable the weather tool (calls the Open-Meteo API)",
			Value:       true,
			Destination: &x.enabled,
		},
	}
}

// Init initializes the tool
func (x *weather) Init(ctx context.Context, client *tool.Client) (bool, error) {
	return x.enabled, nil
}

// Prompt returns additional information to be added to the system prompt
func (x *weather) Prompt(ctx context.Context) string {
	cities := make([]string, 0, len(cityCoords))
	for city := range cityCoords {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return fmt.Sprintf("The get_weather tool supports these cities only: %s.", strings.Join(cities, ", "))
}

// Spec returns the tool specification for Gemini function calling
func (x *weather) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "get_weather",
				Description: "Get the current weather for a supported city",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"city": {
							Type:        genai.TypeString,
							Description: "City name, e.g. London",
						},
					},
					Required: []string{"city"},
				},
			},
		},
	}
}

// Execute runs the tool with the given function call
func (x *weather) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input weatherInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}

	coords, ok := cityCoords[strings.ToLower(strings.TrimSpace(input.City))]
	if !ok {
		return &genai.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: map[string]any{"result": "City not supported."},
		}, nil
	}

	current, err := x.queryAPI(ctx, coords.lat, coords.lon)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query weather API", goerr.V("city", input.City))
	}

	resultJSON, err := json.Marshal(current)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal result")
	}

	return &genai.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"result": string(resultJSON)},
	}, nil
}

// queryAPI fetches the current weather block from Open-Meteo
func (x *weather) queryAPI(ctx context.Context, lat, lon float64) (map[string]any, error) {
	url := fmt.Sprintf("%s/forecast?latitude=%v&longitude=%v&current_weather=true", x.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, goerr.New("weather API returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var result struct {
		CurrentWeather map[string]any `json:"current_weather"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}
	if result.CurrentWeather == nil {
		return nil, goerr.New("weather data missing from response")
	}

	return result.CurrentWeather, nil
}
