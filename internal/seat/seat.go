// Package seat maps tracker project names to physical seat numbers and
// describes the fixed classroom layout.
package seat

import (
	"regexp"
	"strconv"
)

// Seat numbers run across both classrooms.
const (
	Min = 1
	Max = 80
)

// CourseName is the literal project name prefix that marks a project as
// belonging to the course.
const CourseName = "組み込みシステム基礎"

// projectNamePattern matches "組み込みシステム基礎 (N)" anywhere in a project
// name. The whitespace between the course name and the parenthesized number
// is optional and may be a full-width space.
var projectNamePattern = regexp.MustCompile(CourseName + `[\s　]*\((\d+)\)`)

// Resolve extracts a seat number from a project name. The second return
// value is false when the name does not follow the course naming convention
// or the number falls outside [Min, Max]. Absence is a normal outcome: most
// projects in the tracker have nothing to do with the course.
func Resolve(projectName string) (int, bool) {
	m := projectNamePattern.FindStringSubmatch(projectName)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// The capture group is all digits; Atoi only fails on overflow.
		return 0, false
	}
	if !Valid(n) {
		return 0, false
	}
	return n, true
}

// Valid reports whether n is a seat number in [Min, Max].
func Valid(n int) bool {
	return n >= Min && n <= Max
}

// Group is a visually contiguous run of seats sharing one color.
type Group struct {
	Seats     []int
	Color     string
	Separated bool // rendered with extra spacing above
}

// Column is a vertical stack of seat groups.
type Column struct {
	Groups []Group
}

// Classroom is one physical room of the fixed layout.
type Classroom struct {
	Name    string
	Columns []Column
}

// Layout returns the fixed two-classroom seating plan. Seat numbers 1-48
// are in room 6-301, 49-80 in room 8-312.
func Layout() []Classroom {
	return []Classroom{
		{
			Name: "6-301",
			Columns: []Column{
				{Groups: []Group{
					{Seats: seatRange(1, 8), Color: "blue-1"},
					{Seats: seatRange(9, 12), Color: "blue-1", Separated: true},
					{Seats: seatRange(13, 16), Color: "pink-1"},
					{Seats: seatRange(17, 24), Color: "pink-1", Separated: true},
				}},
				{Groups: []Group{
					{Seats: seatRange(25, 32), Color: "green-1"},
					{Seats: seatRange(33, 36), Color: "green-1", Separated: true},
					{Seats: seatRange(37, 40), Color: "purple-1"},
					{Seats: seatRange(41, 48), Color: "purple-1", Separated: true},
				}},
			},
		},
		{
			Name: "8-312",
			Columns: []Column{
				{Groups: []Group{
					{Seats: seatRange(49, 52), Color: "blue-2"},
					{Seats: seatRange(53, 56), Color: "blue-2", Separated: true},
					{Seats: seatRange(57, 60), Color: "blue-2", Separated: true},
				}},
				{Groups: []Group{
					{Seats: seatRange(61, 64), Color: "blue-2"},
					{Seats: seatRange(65, 68), Color: "orange-1", Separated: true},
					{Seats: seatRange(69, 72), Color: "orange-2", Separated: true},
				}},
				{Groups: []Group{
					{Seats: seatRange(73, 76), Color: "orange-1", Separated: true},
					{Seats: seatRange(77, 80), Color: "orange-1", Separated: true},
				}},
			},
		},
	}
}

func seatRange(from, to int) []int {
	seats := make([]int, 0, to-from+1)
	for n := from; n <= to; n++ {
		seats = append(seats, n)
	}
	return seats
}
