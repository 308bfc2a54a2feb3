package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ryosukesatoh/morning-brief/internal/config"
	"github.com/ryosukesatoh/morning-brief/internal/fetcher"
	"github.com/ryosukesatoh/morning-brief/internal/httpx"
	"github.com/ryosukesatoh/morning-brief/internal/publisher"
	"github.com/ryosukesatoh/morning-brief/internal/summarizer"
)

// buildFetchers returns one fetcher per enabled source, in config order.
func buildFetchers(cfg *config.Config, client *http.Client) ([]fetcher.Fetcher, error) {
	fetchers := make([]fetcher.Fetcher, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case fetcher.SourceWeather:
			fetchers = append(fetchers, fetcher.NewWeatherFetcher(client, cfg.Weather.APIKey, cfg.Location.Lat, cfg.Location.Lon))
		case fetcher.SourceGmail:
			fetchers = append(fetchers, fetcher.NewGmailFetcher(client, cfg.Gmail.ClientID, cfg.Gmail.ClientSecret, cfg.Gmail.RefreshToken))
		case fetcher.SourceOutlook:
			fetchers = append(fetchers, fetcher.NewOutlookFetcher(cfg.Outlook.Host, cfg.Outlook.Port, cfg.Outlook.Username, cfg.Outlook.Password, cfg.HTTPTimeout))
		case fetcher.SourceCanvas:
			fetchers = append(fetchers, fetcher.NewCanvasFetcher(client, cfg.Canvas.BaseURL, cfg.Canvas.Token, cfg.Zone()))
		case fetcher.SourceReminders:
			fetchers = append(fetchers, fetcher.NewRemindersFetcher(client, cfg.Reminders.URL, cfg.Reminders.Username, cfg.Reminders.Password, cfg.Zone()))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return fetchers, nil
}

// buildGenerator uses its own client: generation routinely outlasts the source timeout.
func buildGenerator(cfg *config.Config) (summarizer.Generator, error) {
	client := httpx.NewClient(cfg.Summarizer.Timeout)
	switch cfg.Summarizer.Type {
	case "anthropic":
		g, err := summarizer.NewAnthropicGenerator(client, cfg.Summarizer.BaseURL, cfg.Summarizer.APIKey)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		g, err := summarizer.NewOpenAIGenerator(client, cfg.Summarizer.BaseURL, cfg.Summarizer.APIKey)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown summarizer type %q", cfg.Summarizer.Type)
	}
}

func buildPublisher(cfg *config.Config, client *http.Client, stdout io.Writer) (publisher.Publisher, error) {
	p := cfg.Publisher
	var (
		pub publisher.Publisher
		err error
	)
	switch p.Type {
	case "telegram":
		pub, err = orNil(publisher.NewTelegramPublisher(client, p.Telegram.BaseURL, p.Telegram.BotToken, p.Telegram.ChatID))
	case "discord":
		pub, err = orNil(publisher.NewDiscordPublisher(client, p.Discord.WebhookURL, cfg.Zone()))
	case "email":
		pub, err = orNil(publisher.NewEmailPublisher(p.Email.SMTPHost, p.Email.SMTPPort, p.Email.Username, p.Email.Password, p.Email.From, p.Email.To, cfg.Zone()))
	case "stdout":
		pub = publisher.NewStdoutPublisher(stdout)
	default:
		err = fmt.Errorf("unknown publisher type %q", p.Type)
	}
	return pub, err
}

// orNil returns a nil Publisher when the constructor failed.
func orNil[P publisher.Publisher](p P, err error) (publisher.Publisher, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
