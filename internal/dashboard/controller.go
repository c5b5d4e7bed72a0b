// Package dashboard drives the profile dashboard: it loads the cached
// profile, derives statistics and draws every chart onto a display.
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/verte-zerg/xpdash/internal/chart"
	"github.com/verte-zerg/xpdash/internal/model"
	"github.com/verte-zerg/xpdash/internal/render"
	"github.com/verte-zerg/xpdash/internal/session"
	"github.com/verte-zerg/xpdash/internal/stats"
)

// ErrMissingCache is returned by Init when no profile has been fetched yet.
var ErrMissingCache = errors.New("no cached profile")

// Chart surface ids.
const (
	ChartXPTimeline    = "xp-timeline"
	ChartXPByProject   = "xp-by-project"
	ChartAuditRatio    = "audit-ratio-chart"
	ChartPassFail      = "pass-fail-chart"
	ChartCollaboration = "collaboration-graph"
)

// Summary text ids.
const (
	TextTotalXP        = "total-xp"
	TextAuditRatio     = "audit-ratio"
	TextProjectsPassed = "projects-passed"
	TextSuccessRate    = "success-rate"
	TextUserLogin      = "user-login"
	TextUserID         = "user-id"
	TextUserAvatar     = "user-avatar-text"
)

// ChartIDs lists every chart in drawing order.
var ChartIDs = []string{ChartXPTimeline, ChartXPByProject, ChartAuditRatio, ChartPassFail, ChartCollaboration}

// Pie and donut layout on the square canvas.
const (
	pieCenter      = 150
	pieRadius      = 100
	donutInnerHole = 60
)

// State is the lifecycle stage of a Controller.
type State int

const (
	Unloaded State = iota
	Loaded
	Rendered
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Rendered:
		return "rendered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Gateway is the part of the session the controller needs.
type Gateway interface {
	CachedProfile(ctx context.Context) (*model.UserProfile, error)
	RefreshProfile(ctx context.Context) (*model.UserProfile, error)
	OnForceLogout(fn func())
}

// Options configure a Controller.
type Options struct {
	Stats  stats.Options
	Format render.Format
	Logger *zap.Logger
	// OnLogout runs when the session is dropped or no cache exists.
	OnLogout func()
}

// Result describes one render pass.
type Result struct {
	Stats   model.NormalizedStats
	Summary render.Summary
	// Failed maps chart ids to the error that replaced them with a placeholder.
	Failed map[string]error
}

// Controller serializes loading, rendering and refreshing.
type Controller struct {
	gateway  Gateway
	display  Display
	renderer *render.Renderer
	opts     Options
	logger   *zap.Logger

	mu         sync.Mutex
	state      State
	profile    *model.UserProfile
	last       Result
	refreshSeq uint64
}

// New wires a controller to its gateway and display.
func New(gateway Gateway, display Display, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		gateway:  gateway,
		display:  display,
		renderer: render.New(opts.Format),
		opts:     opts,
		logger:   logger,
	}
	gateway.OnForceLogout(c.handleLogout)
	return c
}

// State returns the current lifecycle stage.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last returns the result of the most recent render.
func (c *Controller) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Profile returns the loaded profile, or nil.
func (c *Controller) Profile() *model.UserProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// Init loads the cached profile. Without one the logout callback runs and
// ErrMissingCache is returned.
func (c *Controller) Init(ctx context.Context) error {
	profile, err := c.gateway.CachedProfile(ctx)
	if err != nil || profile == nil {
		c.logger.Info("No cached profile", zap.Error(err))
		c.handleLogout()
		if err == nil {
			return ErrMissingCache
		}
		return fmt.Errorf("%w: %w", ErrMissingCache, err)
	}
	c.mu.Lock()
	c.profile = profile
	c.state = Loaded
	c.mu.Unlock()
	return nil
}

// Render aggregates the loaded profile and draws every chart and summary
// value. A failing chart is replaced by a placeholder; Render itself never
// fails. Without a profile it does nothing.
func (c *Controller) Render(ctx context.Context) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Unloaded || c.profile == nil {
		c.logger.Debug("Render skipped, nothing loaded")
		return Result{}
	}

	s := stats.Aggregate(c.profile, c.opts.Stats)
	if s.SkippedRecords > 0 {
		c.logger.Warn("Skipped malformed transactions", zap.Int("count", s.SkippedRecords))
	}
	res := Result{
		Stats:   s,
		Summary: render.Summarize(s, c.profile.ID, stats.Initials(c.profile.Login)),
		Failed:  map[string]error{},
	}

	for _, id := range ChartIDs {
		if ctx.Err() != nil {
			res.Failed[id] = ctx.Err()
			continue
		}
		if err := c.drawChart(id, s); err != nil {
			res.Failed[id] = err
		}
	}

	c.display.SetText(TextTotalXP, res.Summary.TotalXP)
	c.display.SetText(TextAuditRatio, res.Summary.AuditRatio)
	c.display.SetText(TextProjectsPassed, res.Summary.ProjectsPassed)
	c.display.SetText(TextSuccessRate, res.Summary.SuccessRate)
	c.display.SetText(TextUserLogin, stats.DisplayName(c.profile))
	c.display.SetText(TextUserID, res.Summary.UserID)
	c.display.SetText(TextUserAvatar, res.Summary.Initials)

	c.state = Rendered
	c.last = res
	return res
}

// Refresh fetches a fresh profile, replaces the loaded one and renders it.
// Calls may overlap: a fetch overtaken by a later Refresh, here or in the
// gateway, is dropped and the last result returned.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	profile, err := c.gateway.RefreshProfile(ctx)
	if errors.Is(err, session.ErrStaleFetch) {
		c.logger.Debug("Ignoring stale refresh", zap.Uint64("seq", seq))
		return c.Last(), nil
	}
	if err != nil {
		return Result{}, err
	}
	c.mu.Lock()
	if seq != c.refreshSeq {
		last := c.last
		c.mu.Unlock()
		c.logger.Debug("Ignoring overtaken refresh", zap.Uint64("seq", seq))
		return last, nil
	}
	c.profile = profile
	c.state = Loaded
	c.mu.Unlock()
	return c.Render(ctx), nil
}

func (c *Controller) handleLogout() {
	c.mu.Lock()
	c.profile = nil
	c.state = Unloaded
	c.last = Result{}
	c.mu.Unlock()
	if c.opts.OnLogout != nil {
		c.opts.OnLogout()
	}
}

// drawChart renders one chart off-screen and copies it to its surface. A
// failure or panic while drawing is replaced with a placeholder.
func (c *Controller) drawChart(id string, s model.NormalizedStats) error {
	w, ok := c.display.Surface(id)
	if !ok {
		c.logger.Debug("No surface for chart", zap.String("chart", id))
		return nil
	}
	defer func() {
		if err := w.Close(); err != nil {
			c.logger.Warn("Failed to close chart surface", zap.String("chart", id), zap.Error(err))
		}
	}()

	var buf bytes.Buffer
	drawErr := guard(func() error { return c.draw(&buf, id, s) })
	if drawErr != nil {
		c.logger.Error("Chart failed", zap.String("chart", id), zap.Error(drawErr))
		buf.Reset()
		if err := c.renderer.Placeholder(&buf, canvasFor(id), "Chart unavailable"); err != nil {
			return errors.Join(drawErr, err)
		}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Join(drawErr, fmt.Errorf("write chart %s: %w", id, err))
	}
	return drawErr
}

func (c *Controller) draw(w io.Writer, id string, s model.NormalizedStats) error {
	switch id {
	case ChartXPTimeline:
		return c.renderer.XPTimeline(w, chart.BuildLineChart(s.XPTimeline, chart.WideCanvas), s.XPTimeline)
	case ChartXPByProject:
		entries := make([]chart.Entry, len(s.TopProjects))
		for i, p := range s.TopProjects {
			entries[i] = chart.Entry{Label: p.Name, Value: float64(p.XP)}
		}
		return c.renderer.ProjectBars(w, chart.BuildBarChart(entries, chart.WideCanvas, chart.ProjectPalette))
	case ChartAuditRatio:
		d := chart.BuildDonutChart(s.TotalUp, s.TotalDown, pieCenter, pieCenter, pieRadius, 0)
		return c.renderer.AuditPie(w, d, s.TotalUp, s.TotalDown, render.FormatRatio(s.AuditRatio, s.AuditRatioErr))
	case ChartPassFail:
		d := chart.BuildDonutChart(float64(s.PassRate.Passed), float64(s.PassRate.Failed), pieCenter, pieCenter, pieRadius, donutInnerHole)
		return c.renderer.PassFailDonut(w, d, s.PassRate)
	case ChartCollaboration:
		entries := make([]chart.Entry, len(s.TopCollaborators))
		for i, col := range s.TopCollaborators {
			entries[i] = chart.Entry{Label: col.Login, Value: float64(col.SharedProjectCount)}
		}
		return c.renderer.CollaboratorBars(w, chart.BuildBarChart(entries, chart.WideCanvas, chart.CollaboratorPalette))
	default:
		return fmt.Errorf("unknown chart %q", id)
	}
}

func canvasFor(id string) chart.Canvas {
	if id == ChartAuditRatio || id == ChartPassFail {
		return chart.SquareCanvas
	}
	return chart.WideCanvas
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
