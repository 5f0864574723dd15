package app

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
)

const pulseFPS = 30

type pulseFrameMsg struct{}

// pulse is a spring-damped activity meter. Each sent message kicks it up and
// it settles back to zero.
type pulse struct {
	spring  harmonica.Spring
	pos     float64
	vel     float64
	running bool
}

func newPulse() pulse {
	return pulse{spring: harmonica.NewSpring(harmonica.FPS(pulseFPS), 6.0, 1.0)}
}

// kick raises the meter and starts the animation if it is not running.
func (p *pulse) kick() tea.Cmd {
	p.pos = math.Min(p.pos+0.4, 1)
	if p.running {
		return nil
	}
	p.running = true
	return pulseFrame()
}

// step advances one frame. It returns nil once the meter has settled.
func (p *pulse) step() tea.Cmd {
	if !p.running {
		return nil
	}
	p.pos, p.vel = p.spring.Update(p.pos, p.vel, 0)
	if math.Abs(p.pos) < 0.01 && math.Abs(p.vel) < 0.01 {
		p.pos, p.vel, p.running = 0, 0, false
		return nil
	}
	return pulseFrame()
}

func (p pulse) level() float64 {
	return math.Max(0, math.Min(p.pos, 1))
}

func pulseFrame() tea.Cmd {
	return tea.Tick(time.Second/pulseFPS, func(time.Time) tea.Msg {
		return pulseFrameMsg{}
	})
}
