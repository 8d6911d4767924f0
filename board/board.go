// board/board.go
package board

import "fmt"

// Color 玩家颜色，开局时分配，之后不再改变
type Color int

const (
	Red Color = iota
	Green
	Yellow
	Blue
)

// NoColor marks an unassigned seat or an undecided winner.
const NoColor Color = -1

// Colors lists the four seats in assignment order.
var Colors = [4]Color{Red, Green, Yellow, Blue}

var colorNames = [4]string{"red", "green", "yellow", "blue"}

func (c Color) String() string {
	if c < Red || c > Blue {
		return "none"
	}
	return colorNames[c]
}

// Valid reports whether c is one of the four seat colors.
func (c Color) Valid() bool {
	return c >= Red && c <= Blue
}

// ParseColor converts a color name back into a Color.
func ParseColor(name string) (Color, bool) {
	for i, n := range colorNames {
		if n == name {
			return Color(i), true
		}
	}
	return NoColor, false
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the four color names and "none" for NoColor.
func (c *Color) UnmarshalText(text []byte) error {
	if string(text) == NoColor.String() {
		*c = NoColor
		return nil
	}
	parsed, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("unknown color %q", text)
	}
	*c = parsed
	return nil
}

// Cell 是15x15网格上的坐标
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

const (
	RingLength       = 51
	HomeColumnLength = 5
	// FinishedIndex is the home-column index of the shared center.
	FinishedIndex   = 5
	TokensPerPlayer = 4
	GridSize        = 15
)

var ring = [RingLength]Cell{
	{6, 1}, {6, 2}, {6, 3}, {6, 4}, {6, 5},
	{5, 6}, {4, 6}, {3, 6}, {2, 6}, {1, 6}, {0, 6},
	{0, 7},
	{0, 8}, {1, 8}, {2, 8}, {3, 8}, {4, 8}, {5, 8},
	{6, 9}, {6, 10}, {6, 11}, {6, 12}, {6, 13}, {6, 14},
	{7, 14},
	{8, 14}, {8, 13}, {8, 12}, {8, 11}, {8, 10}, {8, 9},
	{9, 8}, {10, 8}, {11, 8}, {12, 8}, {13, 8}, {14, 8},
	{14, 7},
	{14, 6}, {13, 6}, {12, 6}, {11, 6}, {10, 6}, {9, 6},
	{8, 5}, {8, 4}, {8, 3}, {8, 2}, {8, 1}, {8, 0},
	{7, 0},
}

// 出库后进入外圈的位置
var entryCell = [4]int{0, 13, 26, 39}

// 越过该格后拐入本色终点通道
var homeEntryCell = [4]int{50, 11, 24, 37}

var homeColumns = [4][HomeColumnLength]Cell{
	{{7, 1}, {7, 2}, {7, 3}, {7, 4}, {7, 5}},
	{{1, 7}, {2, 7}, {3, 7}, {4, 7}, {5, 7}},
	{{7, 13}, {7, 12}, {7, 11}, {7, 10}, {7, 9}},
	{{13, 7}, {12, 7}, {11, 7}, {10, 7}, {9, 7}},
}

// Center is the shared finishing cell.
var Center = Cell{7, 7}

// entry cells plus the four mid-ring stars
var safeCells = map[int]struct{}{
	0: {}, 8: {}, 13: {}, 21: {}, 26: {}, 34: {}, 39: {}, 47: {},
}

var yardSlots = [4][TokensPerPlayer]Cell{
	{{1, 1}, {1, 3}, {3, 1}, {3, 3}},
	{{1, 11}, {1, 13}, {3, 11}, {3, 13}},
	{{11, 11}, {11, 13}, {13, 11}, {13, 13}},
	{{11, 1}, {11, 3}, {13, 1}, {13, 3}},
}

// RingDistance returns the forward cyclic distance from one ring index to another.
func RingDistance(from, to int) int {
	return (to - from + RingLength) % RingLength
}

// IsSafeCell reports whether a ring index is immune to capture.
func IsSafeCell(ringIndex int) bool {
	_, ok := safeCells[ringIndex]
	return ok
}

// SafeCells returns the safe ring indices in ascending order.
func SafeCells() []int {
	cells := make([]int, 0, len(safeCells))
	for i := 0; i < RingLength; i++ {
		if IsSafeCell(i) {
			cells = append(cells, i)
		}
	}
	return cells
}

func EntryCell(c Color) int {
	return entryCell[c]
}

func HomeEntryCell(c Color) int {
	return homeEntryCell[c]
}

func RingCell(ringIndex int) Cell {
	return ring[ringIndex]
}

// HomeColumnCell returns the grid cell for a home-column index; FinishedIndex maps to Center.
func HomeColumnCell(c Color, homeIndex int) Cell {
	if homeIndex >= FinishedIndex {
		return Center
	}
	return homeColumns[c][homeIndex]
}

func YardSlot(c Color, slot int) Cell {
	return yardSlots[c][slot]
}

// StepsFromEntry 计算从本色入口起已经走过的外圈格数
func StepsFromEntry(c Color, ringIndex int) int {
	return RingDistance(entryCell[c], ringIndex)
}
