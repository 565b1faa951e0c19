package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
)

const barWidth = 40

type realizationMsg struct {
	idx int
	rep dynamo.RealizationReport
}

type doneMsg struct {
	res *dynamo.Result
	err error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type progressModel struct {
	name   string
	total  int
	cancel context.CancelFunc

	done         int
	failed       int
	nonConverged int
	iterations   []float64
	start        time.Time
	now          time.Time

	res      *dynamo.Result
	err      error
	finished bool
	aborted  bool
}

func newProgressModel(name string, total int, cancel context.CancelFunc) progressModel {
	now := time.Now()
	return progressModel{
		name:       name,
		total:      total,
		cancel:     cancel,
		iterations: make([]float64, 0, total),
		start:      now,
		now:        now,
	}
}

func (m progressModel) Init() tea.Cmd { return tick() }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case realizationMsg:
		m.done++
		if msg.rep.Failed() {
			m.failed++
		}
		m.nonConverged += len(msg.rep.NonConverged)
		m.iterations = append(m.iterations, float64(msg.rep.Iterations))
	case tickMsg:
		m.now = time.Time(msg)
		if m.finished {
			return m, nil
		}
		return m, tick()
	case doneMsg:
		m.res = msg.res
		m.err = msg.err
		m.finished = true
		m.now = time.Now()
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString("\n   " + cyan.Render(m.name) + "  " + dim.Render(fmt.Sprintf("%d realizations", m.total)) + "\n\n")

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.done) / float64(m.total)
	}
	filled := int(frac * barWidth)
	bar := green.Render(strings.Repeat("█", filled)) + dimmer.Render(strings.Repeat("░", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar, white.Render(fmt.Sprintf("%3.0f%%", frac*100))))

	b.WriteString(fmt.Sprintf("   %s %s   %s %s\n",
		dim.Render("done"), white.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
		dim.Render("elapsed"), white.Render(m.now.Sub(m.start).Round(10*time.Millisecond).String())))

	failed := green.Render("0")
	if m.failed > 0 {
		failed = red.Render(fmt.Sprint(m.failed))
	}
	capped := green.Render("0")
	if m.nonConverged > 0 {
		capped = yellow.Render(fmt.Sprint(m.nonConverged))
	}
	b.WriteString(fmt.Sprintf("   %s %s   %s %s\n", dim.Render("failed"), failed, dim.Render("capped steps"), capped))

	if len(m.iterations) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("newton"), magenta.Render(sparkline(m.iterations, barWidth))))
	}

	if !m.finished {
		b.WriteString("\n" + dim.Render("   q abort") + "\n")
	}
	return b.String()
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}

// RunFunc runs a batch, reporting every finished realization to obs.
type RunFunc func(ctx context.Context, obs sim.Observer) (*dynamo.Result, error)

// RunWithProgress runs fn while showing a progress view. Quitting the view cancels
// the batch.
func RunWithProgress(ctx context.Context, name string, total int, fn RunFunc) (*dynamo.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newProgressModel(name, total, cancel))

	type outcome struct {
		res *dynamo.Result
		err error
	}
	results := make(chan outcome, 1)

	go func() {
		res, err := fn(ctx, sim.ObserverFunc(func(idx int, rep dynamo.RealizationReport) {
			p.Send(realizationMsg{idx: idx, rep: rep})
		}))
		p.Send(doneMsg{res: res, err: err})
		results <- outcome{res: res, err: err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-results
		return nil, err
	}

	out := <-results
	return out.res, out.err
}
