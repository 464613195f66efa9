package trivia_test

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/trivia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const question = `{"response_code":0,"results":[{"type":"multiple","difficulty":"easy","category":"Science",
"question":"What is the chemical symbol for &quot;gold&quot;?",
"correct_answer":"Au","incorrect_answers":["Ag","Gd","Go&amp;Co"]}]}`

var optionLine = regexp.MustCompile(`^  ([A-D])\) (.+)$`)

func newTool(t *testing.T, body string, status int) *trivia.Tool {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api.php", r.URL.Path)
		assert.Equal(t, "multiple", r.URL.Query().Get("type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return trivia.New(tools.DefaultValues().WithBaseURL(srv.URL), tools.NewClient(srv.Client()))
}

func TestTrivia(t *testing.T) {
	ctx := context.Background()

	tool := newTool(t, question, http.StatusOK).WithRand(rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, tools.Trivia, tool.Name())

	out, err := tool.Call(ctx, nil)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, `Question: What is the chemical symbol for "gold"?`, lines[0])
	assert.Empty(t, lines[1])
	assert.Empty(t, lines[6])

	labels := map[string]string{}
	var got []string
	for i, line := range lines[2:6] {
		m := optionLine.FindStringSubmatch(line)
		require.NotNil(t, m, line)
		assert.Equal(t, string(rune('A'+i)), m[1])
		labels[m[2]] = m[1]
		got = append(got, m[2])
	}
	assert.ElementsMatch(t, []string{"Au", "Ag", "Gd", "Go&Co"}, got)
	assert.Equal(t, "Answer: "+labels["Au"]+") Au", lines[7])

	// the same source gives the same order
	again, err := newTool(t, question, http.StatusOK).WithRand(rand.New(rand.NewPCG(1, 2))).Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestTrivia_NoQuestion(t *testing.T) {
	ctx := context.Background()

	out, err := newTool(t, `{"response_code":1,"results":[]}`, http.StatusOK).Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "No trivia available.", out)

	out, err = newTool(t, `{}`, http.StatusTooManyRequests).Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "No trivia available.", out)
}
