package provider

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNoResult means a geo provider answered but had no data for the IP.
// The chain moves on to the next provider.
var ErrNoResult = errors.New("no geolocation result")

// GeoResult is a normalized lookup answer. Each provider speaks its own
// response dialect; normalization happens at the provider boundary so
// the rest of the pipeline sees one shape.
type GeoResult struct {
	IP          string
	City        string
	Region      string
	CountryName string
	CountryCode string
	Source      string
}

// GeoProvider resolves one IP to a location.
type GeoProvider interface {
	Name() string
	Lookup(ctx context.Context, ip string) (*GeoResult, error)
}

// FallbackChain tries providers in order until one answers. Free geo
// services rate limit aggressively and fail in bursts, so the chain
// treats every provider error as a reason to try the next.
type FallbackChain struct {
	providers []GeoProvider
	logger    *slog.Logger
}

func NewFallbackChain(logger *slog.Logger, providers ...GeoProvider) *FallbackChain {
	return &FallbackChain{providers: providers, logger: logger}
}

// DefaultGeoChain is the standard provider order.
func DefaultGeoChain(client *Client, logger *slog.Logger) *FallbackChain {
	return NewFallbackChain(logger,
		&ipAPIProvider{client},
		&freeIPAPIProvider{client},
		&ipWhoisProvider{client},
		&ipapiCoProvider{client},
	)
}

// Lookup resolves ip through the chain. The returned result carries the
// name of the provider that answered. All providers failing yields
// ErrNoResult.
func (c *FallbackChain) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	for _, p := range c.providers {
		res, err := p.Lookup(ctx, ip)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("geo provider failed", "provider", p.Name(), "ip", ip, "error", err)
			continue
		}
		res.IP = ip
		res.Source = p.Name()
		return res, nil
	}
	return nil, ErrNoResult
}

type ipAPIProvider struct {
	client *Client
}

func (p *ipAPIProvider) Name() string { return "ip-api.com" }

func (p *ipAPIProvider) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	var resp struct {
		Status      string `json:"status"`
		City        string `json:"city"`
		RegionName  string `json:"regionName"`
		Country     string `json:"country"`
		CountryCode string `json:"countryCode"`
	}
	if err := p.client.GetJSON(ctx, "http://ip-api.com/json/"+ip, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, ErrNoResult
	}
	return &GeoResult{
		City:        resp.City,
		Region:      resp.RegionName,
		CountryName: resp.Country,
		CountryCode: resp.CountryCode,
	}, nil
}

type freeIPAPIProvider struct {
	client *Client
}

func (p *freeIPAPIProvider) Name() string { return "freeipapi.com" }

func (p *freeIPAPIProvider) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	var resp struct {
		CityName    string `json:"cityName"`
		RegionName  string `json:"regionName"`
		CountryName string `json:"countryName"`
		CountryCode string `json:"countryCode"`
	}
	if err := p.client.GetJSON(ctx, "https://freeipapi.com/api/json/"+ip, nil, &resp); err != nil {
		return nil, err
	}
	if resp.CityName == "" {
		return nil, ErrNoResult
	}
	return &GeoResult{
		City:        resp.CityName,
		Region:      resp.RegionName,
		CountryName: resp.CountryName,
		CountryCode: resp.CountryCode,
	}, nil
}

type ipWhoisProvider struct {
	client *Client
}

func (p *ipWhoisProvider) Name() string { return "ipwho.is" }

func (p *ipWhoisProvider) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	var resp struct {
		Success     bool   `json:"success"`
		City        string `json:"city"`
		Region      string `json:"region"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	}
	if err := p.client.GetJSON(ctx, "https://ipwho.is/"+ip, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, ErrNoResult
	}
	return &GeoResult{
		City:        resp.City,
		Region:      resp.Region,
		CountryName: resp.Country,
		CountryCode: resp.CountryCode,
	}, nil
}

type ipapiCoProvider struct {
	client *Client
}

func (p *ipapiCoProvider) Name() string { return "ipapi.co" }

func (p *ipapiCoProvider) Lookup(ctx context.Context, ip string) (*GeoResult, error) {
	var resp struct {
		Error       bool   `json:"error"`
		City        string `json:"city"`
		Region      string `json:"region"`
		CountryName string `json:"country_name"`
		CountryCode string `json:"country_code"`
	}
	if err := p.client.GetJSON(ctx, "https://ipapi.co/"+ip+"/json/", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Error || resp.City == "" {
		return nil, ErrNoResult
	}
	return &GeoResult{
		City:        resp.City,
		Region:      resp.Region,
		CountryName: resp.CountryName,
		CountryCode: resp.CountryCode,
	}, nil
}
