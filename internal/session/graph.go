package session

// Node is a piece of session state that other state is derived from.
type Node int

const (
	NodeIdentity Node = iota
	NodeAnswers
	NodeScraped
	NodeProfile
	NodeConcepts
	NodeSelection
	NodeStoryboard
)

var nodeNames = [...]string{"identity", "answers", "scraped", "profile", "concepts", "selection", "storyboard"}

func (n Node) String() string {
	if int(n) < len(nodeNames) {
		return nodeNames[n]
	}
	return "unknown"
}

// dependents lists, for each node, the nodes computed directly from it.
var dependents = map[Node][]Node{
	NodeIdentity:  {NodeScraped, NodeProfile},
	NodeScraped:   {NodeProfile},
	NodeAnswers:   {NodeProfile},
	NodeProfile:   {NodeConcepts},
	NodeConcepts:  {NodeSelection},
	NodeSelection: {NodeStoryboard},
}

// Descendants returns every node reachable from n, nearest first, without
// n itself.
func Descendants(n Node) []Node {
	var out []Node
	seen := map[Node]bool{n: true}
	queue := []Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range dependents[cur] {
			if seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			queue = append(queue, d)
		}
	}
	return out
}
