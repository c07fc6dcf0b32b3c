package machine

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
)

// debugSetsShown is how many sets of each cache this monitor renders — the
// whole 64 would not fit a terminal usefully.
const debugSetsShown = 4

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	haltedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// monitorModel is the bubbletea model wrapping a Machine: single-step on
// keypress, rendering register/PC/cache panels. Grounded on hejops-gone's
// cpu/debugger.go model/Update/View shape, re-pointed at RV32I state.
type monitorModel struct {
	m       *Machine
	lastErr error
	steps   uint64
}

func (mm monitorModel) Init() tea.Cmd {
	return nil
}

func (mm monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return mm, tea.Quit
		case " ", "j":
			if mm.m.CPU.Halted {
				return mm, nil
			}
			if err := mm.m.CPU.Step(); err != nil && err != ErrHalted {
				mm.lastErr = err
			}
			mm.steps++
		}
	}
	return mm, nil
}

func (mm monitorModel) registersView() string {
	var b strings.Builder
	fmt.Fprintf(&b, "PC: %08x   steps: %d\n", mm.m.CPU.PC, mm.steps)
	for i := 0; i < numRegisters; i += 4 {
		for col := 0; col < 4; col++ {
			idx := i + col
			fmt.Fprintf(&b, "x%-2d=%08x  ", idx, mm.m.CPU.Regs.Read(uint8(idx)))
		}
		b.WriteString("\n")
	}
	if mm.m.CPU.Halted {
		b.WriteString(haltedStyle.Render("HALTED"))
		b.WriteString("\n")
	}
	if mm.lastErr != nil {
		b.WriteString(haltedStyle.Render(mm.lastErr.Error()))
		b.WriteString("\n")
	}
	return panelStyle.Render(b.String())
}

func cacheSetsView(name string, get func(int) setSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s cache (first %d sets)\n", name, debugSetsShown)
	for i := 0; i < debugSetsShown; i++ {
		s := get(i)
		fmt.Fprintf(&b, "set %02d lru=%d  way0[v=%v d=%v tag=%05x]  way1[v=%v d=%v tag=%05x]\n",
			i, s.lru,
			s.ways[0].valid, s.ways[0].dirty, s.ways[0].tag,
			s.ways[1].valid, s.ways[1].dirty, s.ways[1].tag)
	}
	return panelStyle.Render(b.String())
}

func (mm monitorModel) nextInstructionView() string {
	// A full Fetch would mutate cache state (fill/evict), which the
	// monitor must not do merely to render a preview. Read the four raw
	// RAM bytes directly instead.
	b0 := mm.m.RAM.byteAt(mm.m.CPU.PC)
	b1 := mm.m.RAM.byteAt(mm.m.CPU.PC + 1)
	b2 := mm.m.RAM.byteAt(mm.m.CPU.PC + 2)
	b3 := mm.m.RAM.byteAt(mm.m.CPU.PC + 3)
	raw := uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
	inst := Decode(raw)
	return panelStyle.Render(fmt.Sprintf("next: %08x  %s\n\n%s", raw, Disassemble(inst), spew.Sdump(inst)))
}

func (mm monitorModel) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		mm.registersView(),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			cacheSetsView("data", mm.m.Mem.DataCacheSet),
			cacheSetsView("instr", mm.m.Mem.InstrCacheSet),
		),
		mm.nextInstructionView(),
		"space/j: step   q: quit",
	)
}

// RunDebugMonitor launches the interactive terminal debug monitor over m,
// blocking until the user quits. This is the ambient-stack replacement for
// the teacher's pixelgl debug panel (bus.go's DrawDebugPanel): the same
// "inspect live machine state, one instruction at a time" idea, rendered as
// a terminal UI instead of a graphics window, since this machine has no
// video output.
func RunDebugMonitor(m *Machine) error {
	p := tea.NewProgram(monitorModel{m: m})
	_, err := p.Run()
	return err
}
