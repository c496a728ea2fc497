package supabase

import (
	"github.com/supabase-community/supabase-go"

	"ani-canvas-backend/internal/config"
)

// Client is the shared handle to the Supabase platform: GoTrue auth plus the
// project-scoped REST surface.
type Client struct {
	Supabase *supabase.Client
	Config   *config.Config
}

func NewClient(cfg *config.Config) (*Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		Supabase: client,
		Config:   cfg,
	}, nil
}
