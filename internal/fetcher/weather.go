package fetcher

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ryosukesatoh/morning-brief/internal/httpx"
)

// forecastSamples is 24h of the provider's 3-hour forecast blocks.
const forecastSamples = 8

type owmCurrent struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmForecast struct {
	List []struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// WeatherFetcher reads current conditions and today's range from OpenWeatherMap.
// The free tier splits these across /weather and /forecast, so every fetch makes two calls.
type WeatherFetcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
	lat     float64
	lon     float64
}

func NewWeatherFetcher(client *http.Client, apiKey string, lat, lon float64) *WeatherFetcher {
	return &WeatherFetcher{
		client:  client,
		baseURL: "https://api.openweathermap.org/data/2.5",
		apiKey:  apiKey,
		lat:     lat,
		lon:     lon,
	}
}

func (f *WeatherFetcher) Name() string { return SourceWeather }

func (f *WeatherFetcher) Fetch(ctx context.Context) Result {
	if f.apiKey == "" {
		return Fail(SourceWeather, "OPENWEATHER_API_KEY not set")
	}

	var current owmCurrent
	if err := httpx.GetJSON(ctx, f.client, f.endpoint("weather", 0), nil, &current); err != nil {
		return Fail(SourceWeather, "%v", err)
	}

	var forecast owmForecast
	if err := httpx.GetJSON(ctx, f.client, f.endpoint("forecast", forecastSamples), nil, &forecast); err != nil {
		return Fail(SourceWeather, "%v", err)
	}

	return OK(SourceWeather, buildSnapshot(current, forecast))
}

func (f *WeatherFetcher) endpoint(path string, cnt int) string {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(f.lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(f.lon, 'f', -1, 64))
	values.Set("appid", f.apiKey)
	values.Set("units", "imperial")
	if cnt > 0 {
		values.Set("cnt", strconv.Itoa(cnt))
	}
	return fmt.Sprintf("%s/%s?%s", f.baseURL, path, values.Encode())
}

// buildSnapshot folds the current reading into the forecast window for high/low
// and takes the worst precipitation probability of the window.
func buildSnapshot(current owmCurrent, forecast owmForecast) WeatherSnapshot {
	high, low := current.Main.Temp, current.Main.Temp
	maxPop := 0.0
	for _, entry := range forecast.List {
		high = max(high, entry.Main.Temp)
		low = min(low, entry.Main.Temp)
		maxPop = max(maxPop, entry.Pop)
	}

	var condition string
	if len(current.Weather) > 0 {
		condition = cases.Title(language.English).String(current.Weather[0].Description)
	}

	return WeatherSnapshot{
		CurrentTemp: round(current.Main.Temp),
		High:        round(high),
		Low:         round(low),
		Condition:   condition,
		RainChance:  round(maxPop * 100),
	}
}

// round uses ties-to-even.
func round(v float64) int {
	return int(math.RoundToEven(v))
}
