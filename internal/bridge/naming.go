package bridge

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"lottery-bridge-lab/internal/domain"
	"lottery-bridge-lab/internal/position"
)

var pascalLabels = map[domain.PascalSource]string{
	domain.PascalGDB:   "GDB",
	domain.PascalG1:    "G1",
	domain.PascalGDBG1: "GDB_G1",
}

// Name returns the display name of a bridge.
// Names are for people and de-duplication only; the BridgeSpec is the identity.
func Name(spec domain.BridgeSpec) string {
	switch spec.Kind {
	case domain.KindLoPosition:
		return fmt.Sprintf("LO_POS_%s__%s", slotTag(spec.OperandA), slotTag(spec.OperandB))
	case domain.KindLoMemorySum, domain.KindLoMemoryDiff:
		return fmt.Sprintf("%s_%s_%s", spec.Kind, memoryTag(spec.OperandA), memoryTag(spec.OperandB))
	case domain.KindLoClassic:
		return fmt.Sprintf("LO_STL_FIXED_%02d", spec.OperandA)
	case domain.KindDePosSum:
		return fmt.Sprintf("DE_POS_%s__%s", slotTag(spec.OperandA), slotTag(spec.OperandB))
	case domain.KindDeDynamic:
		return fmt.Sprintf("DE_DYN_%s__%s_K%d", slotTag(spec.OperandA), slotTag(spec.OperandB), spec.KOffset)
	case domain.KindDeSet:
		return fmt.Sprintf("DE_SET_%s__%s", slotTag(spec.OperandA), slotTag(spec.OperandB))
	case domain.KindDeKiller:
		return fmt.Sprintf("DE_KILLER_%s__%s", slotTag(spec.OperandA), slotTag(spec.OperandB))
	case domain.KindDePascal:
		return "DE_PASCAL_" + pascalLabels[domain.PascalSource(spec.OperandA)]
	case domain.KindDeMemory:
		name := "DE_MEM_" + TriggerLabel(domain.MemoryTrigger(spec.OperandA))
		if spec.OperandB > 0 && spec.OperandB != DefaultMemoryDepth {
			name += fmt.Sprintf("_D%d", spec.OperandB)
		}
		return name
	default:
		return string(spec.Kind)
	}
}

// Describe returns a one-line human description of a bridge.
func Describe(spec domain.BridgeSpec) string {
	a, _ := position.Name(spec.OperandA)
	b, _ := position.Name(spec.OperandB)
	switch spec.Kind {
	case domain.KindLoPosition:
		return fmt.Sprintf("Song thủ vị trí: %s + %s", a, b)
	case domain.KindLoMemorySum:
		return fmt.Sprintf("Bạc nhớ tổng: %s + %s", memoryTag(spec.OperandA), memoryTag(spec.OperandB))
	case domain.KindLoMemoryDiff:
		return fmt.Sprintf("Bạc nhớ hiệu: %s - %s", memoryTag(spec.OperandA), memoryTag(spec.OperandB))
	case domain.KindLoClassic:
		return fmt.Sprintf("Cầu cổ điển %d (%s)", spec.OperandA, ClassicLabel(spec.OperandA))
	case domain.KindDePosSum:
		return fmt.Sprintf("Tổng vị trí: %s + %s", a, b)
	case domain.KindDeDynamic:
		return fmt.Sprintf("Chạm động: %s + %s (K=%d)", a, b, spec.KOffset)
	case domain.KindDeSet:
		return fmt.Sprintf("Bộ: %s + %s", a, b)
	case domain.KindDeKiller:
		return fmt.Sprintf("Loại chạm: %s + %s", a, b)
	case domain.KindDePascal:
		return "Pascal " + pascalLabels[domain.PascalSource(spec.OperandA)]
	case domain.KindDeMemory:
		return "Bạc nhớ đề " + TriggerLabel(domain.MemoryTrigger(spec.OperandA))
	default:
		return ""
	}
}

// NormalizeName folds a bridge name into its de-duplication key:
// diacritics removed, upper case, every run of separators collapsed to "_".
func NormalizeName(name string) string {
	// Chained transformers carry state, so one is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		switch {
		case r == 'đ' || r == 'Đ':
			r = 'D'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			r = unicode.ToUpper(r)
		default:
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func slotTag(i int) string {
	name, ok := position.Name(i)
	if !ok {
		return fmt.Sprintf("P%d", i)
	}
	r := strings.NewReplacer("Bong(", "Bong_", ")", "", "[", "_", "]", "")
	return r.Replace(name)
}

func memoryTag(i int) string {
	if i < 0 || i >= position.MemoryCount {
		return fmt.Sprintf("L%d", i)
	}
	return position.MemoryNames[i]
}
