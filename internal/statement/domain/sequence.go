package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberPrefix returns "{project}-{workType}-".
func NumberPrefix(projectCode, workTypeCode string) string {
	return fmt.Sprintf("%s-%s-", projectCode, workTypeCode)
}

func FormatNumber(projectCode, workTypeCode string, seq int) string {
	return fmt.Sprintf("%s%03d", NumberPrefix(projectCode, workTypeCode), seq)
}

// NextNumber increments the trailing segment of latest. Anything that does
// not parse restarts at 001.
func NextNumber(projectCode, workTypeCode, latest string) string {
	seq, ok := ParseSequence(NumberPrefix(projectCode, workTypeCode), latest)
	if !ok {
		return FormatNumber(projectCode, workTypeCode, 1)
	}
	return FormatNumber(projectCode, workTypeCode, seq+1)
}

func ParseSequence(prefix, number string) (int, bool) {
	if number == "" || !strings.HasPrefix(number, prefix) {
		return 0, false
	}
	tail := strings.TrimPrefix(number, prefix)
	if tail == "" || strings.Contains(tail, "-") {
		return 0, false
	}
	seq, err := strconv.Atoi(tail)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// LatestNumber picks the number with the highest trailing sequence.
// "P1-WT1-1000" beats "P1-WT1-999" although it sorts lower as text.
func LatestNumber(prefix string, numbers []string) string {
	best, bestSeq := "", -1
	for _, n := range numbers {
		seq, ok := ParseSequence(prefix, n)
		if !ok {
			continue
		}
		if seq > bestSeq {
			best, bestSeq = n, seq
		}
	}
	return best
}
