package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordTokens_LowercasesAndSplits(t *testing.T) {
	got := wordTokens("Fix the Bug! (urgent)")
	require.Equal(t, []string{"fix", "the", "bug", "urgent"}, got)
}

func TestWordTokens_DropsEmpties(t *testing.T) {
	got := wordTokens("  ---  ")
	require.Empty(t, got)
}

func TestWordTokens_KeepsUnderscore(t *testing.T) {
	got := wordTokens("snake_case_name")
	require.Equal(t, []string{"snake_case_name"}, got)
}

func TestWordNgrams_Unigrams(t *testing.T) {
	got := wordNgrams([]string{"a", "b", "c"}, 1, 1)
	require.Equal(t, []string{"a", "b", "c"}, got)
}

func TestWordNgrams_Bigrams(t *testing.T) {
	got := wordNgrams([]string{"a", "b", "c"}, 2, 2)
	require.Equal(t, []string{"a b", "b c"}, got)
}

func TestCharNgrams_PadsEachWhitespaceRun(t *testing.T) {
	got := charNgrams("ab", 3, 3)
	require.Equal(t, []string{" ab", "ab "}, got)
}

func TestCharNgrams_MultipleWordsIndependentlyPadded(t *testing.T) {
	got := charNgrams("ab cd", 3, 3)
	require.Equal(t, []string{" ab", "ab ", " cd", "cd "}, got)
}
