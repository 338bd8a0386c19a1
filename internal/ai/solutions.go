package ai

import (
	"fmt"

	"codeduel/internal/models"
)

// Template bodies used when neither the LLM nor a reference solution is
// available. They only have to look like work in progress on the opponent's
// screen, so each is a plausible sketch for its category rather than a
// correct general solver.
var categoryBodies = map[string]string{
	"array": `    result = []
    seen = {}
    for i, value in enumerate(data):
        if value in seen:
            return [seen[value], i]
        seen[value] = i
        result.append(value)
    return result
`,
	"string": `    chars = list(data)
    left, right = 0, len(chars) - 1
    while left < right:
        chars[left], chars[right] = chars[right], chars[left]
        left += 1
        right -= 1
    return "".join(chars)
`,
	"hash_map": `    counts = {}
    for value in data:
        counts[value] = counts.get(value, 0) + 1
    best = None
    for value, count in counts.items():
        if best is None or count > counts[best]:
            best = value
    return best
`,
	"dynamic_programming": `    n = len(data)
    dp = [0] * (n + 1)
    for i in range(1, n + 1):
        dp[i] = max(dp[i - 1], dp[i - 1] + data[i - 1])
    return dp[n]
`,
	"graph": `    visited = set()
    stack = [0]
    while stack:
        node = stack.pop()
        if node in visited:
            continue
        visited.add(node)
        for neighbor in data.get(node, []):
            stack.append(neighbor)
    return len(visited)
`,
	"tree": `    if data is None:
        return 0
    depth = 0
    queue = [data]
    while queue:
        depth += 1
        queue = [child for node in queue for child in node]
    return depth
`,
}

const defaultBody = `    result = None
    for value in data:
        if result is None or value > result:
            result = value
    return result
`

func templateSolution(problem *models.Problem) string {
	name := problem.FunctionName
	if name == "" {
		name = "solve"
	}
	body, ok := categoryBodies[problem.ProblemType]
	if !ok {
		body = defaultBody
	}
	return fmt.Sprintf("def %s(data):\n%s", name, body)
}
