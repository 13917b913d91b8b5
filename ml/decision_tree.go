package ml

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
)

const (
	defaultMaxDepth = 3

	paramMaxDepth = "max_depth"
	paramNodes    = "nodes"
)

// Node row layout inside the "nodes" parameter.
const (
	nodeFeature = iota
	nodeThreshold
	nodeLeft
	nodeRight
	nodeLabel
	nodeLeaf
	nodeWidth
)

// DecisionTree is a binary classification tree split on per-feature medians
// by Gini impurity.
type DecisionTree struct {
	BaseModel
}

type treeNode struct {
	featureIdx int
	threshold  float64
	leftChild  int
	rightChild int
	classLabel float64
	isLeaf     bool
}

func NewDecisionTree(params Parameters) *DecisionTree {
	dt := &DecisionTree{}
	dt.setup("decision_tree", Parameters{paramMaxDepth: IntValue(defaultMaxDepth)})
	dt.SetParams(params)
	return dt
}

func (dt *DecisionTree) maxDepth() int {
	value, ok := dt.param(paramMaxDepth)
	if !ok {
		return defaultMaxDepth
	}
	depth, ok := value.AsFloat()
	if !ok || depth <= 0 {
		return defaultMaxDepth
	}
	return int(depth)
}

func (dt *DecisionTree) Fit(X [][]float64, y []float64) error {
	if _, err := checkTrainingSet(X, y); err != nil {
		return fmt.Errorf("fit %s: %w", dt.Name(), err)
	}

	var nodes []treeNode
	buildNode(&nodes, X, y, 0, dt.maxDepth())

	rows := make([][]float64, len(nodes))
	for i, node := range nodes {
		rows[i] = encodeNode(node)
	}
	dt.setParam(paramNodes, MatrixValue(rows))
	dt.setParam("n_features", IntValue(int64(len(X[0]))))
	logger.Debug("fitted decision tree", zap.Int("nodes", len(nodes)), zap.Int("samples", len(X)))
	return nil
}

func (dt *DecisionTree) Predict(X [][]float64) ([]float64, error) {
	nodes, err := dt.nodes()
	if err != nil {
		return nil, err
	}
	predictions := make([]float64, len(X))
	for i, row := range X {
		label, err := walkTree(nodes, row)
		if err != nil {
			return nil, fmt.Errorf("predict %s: row %d: %w", dt.Name(), i, err)
		}
		predictions[i] = label
	}
	return predictions, nil
}

func (dt *DecisionTree) nodes() ([]treeNode, error) {
	value, ok := dt.param(paramNodes)
	if !ok {
		return nil, fmt.Errorf("predict %s: %w", dt.Name(), ErrNotFitted)
	}
	rows, ok := value.AsMatrix()
	if !ok || len(rows) == 0 {
		return nil, fmt.Errorf("predict %s: %w", dt.Name(), ErrNotFitted)
	}
	nodes := make([]treeNode, len(rows))
	for i, row := range rows {
		if len(row) != nodeWidth {
			return nil, fmt.Errorf("predict %s: node %d: %w", dt.Name(), i, ErrShapeMismatch)
		}
		nodes[i] = decodeNode(row)
	}
	return nodes, nil
}

func walkTree(nodes []treeNode, features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.isLeaf {
			return node.classLabel, nil
		}
		if node.featureIdx < 0 || node.featureIdx >= len(features) {
			return 0, fmt.Errorf("%w: feature index %d out of range", ErrShapeMismatch, node.featureIdx)
		}
		if features[node.featureIdx] <= node.threshold {
			idx = node.leftChild
		} else {
			idx = node.rightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return 0, fmt.Errorf("invalid tree state")
		}
	}
	return 0, fmt.Errorf("invalid tree state")
}

// buildNode appends the subtree for (X, y) to nodes and returns its index.
func buildNode(nodes *[]treeNode, X [][]float64, y []float64, depth, maxDepth int) int {
	idx := len(*nodes)
	label := majorityLabel(y)
	*nodes = append(*nodes, treeNode{featureIdx: -1, leftChild: -1, rightChild: -1, classLabel: label, isLeaf: true})

	if depth >= maxDepth || isPure(y) {
		return idx
	}
	bestFeature, threshold, ok := findBestSplit(X, y)
	if !ok {
		return idx
	}
	leftX, leftY, rightX, rightY := splitData(X, y, bestFeature, threshold)

	left := buildNode(nodes, leftX, leftY, depth+1, maxDepth)
	right := buildNode(nodes, rightX, rightY, depth+1, maxDepth)
	(*nodes)[idx] = treeNode{
		featureIdx: bestFeature,
		threshold:  threshold,
		leftChild:  left,
		rightChild: right,
		classLabel: label,
	}
	return idx
}

func findBestSplit(X [][]float64, y []float64) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for featureIdx := range X[0] {
		values := make([]float64, len(X))
		for i := range X {
			values[i] = X[i][featureIdx]
		}
		threshold := median(values)
		_, leftY, _, rightY := splitData(X, y, featureIdx, threshold)
		if len(leftY) == 0 || len(rightY) == 0 {
			continue
		}
		impurity := weightedGini(leftY, rightY)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestFeature = featureIdx
			bestThreshold = threshold
		}
	}
	return bestFeature, bestThreshold, bestFeature != -1
}

func splitData(X [][]float64, y []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	var leftX, rightX [][]float64
	var leftY, rightY []float64
	for i, row := range X {
		if row[featureIdx] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

func weightedGini(left, right []float64) float64 {
	leftWeight := float64(len(left))
	rightWeight := float64(len(right))
	total := leftWeight + rightWeight
	return (leftWeight/total)*gini(left) + (rightWeight/total)*gini(right)
}

func gini(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, label := range labels {
		counts[label]++
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(len(labels))
		impurity -= prob * prob
	}
	return impurity
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// majorityLabel breaks ties toward the smaller label.
func majorityLabel(labels []float64) float64 {
	counts := make(map[float64]int)
	for _, label := range labels {
		counts[label]++
	}
	best, bestCount := 0.0, -1
	for label, count := range counts {
		if count > bestCount || (count == bestCount && label < best) {
			best, bestCount = label, count
		}
	}
	return best
}

func isPure(labels []float64) bool {
	for _, label := range labels[1:] {
		if label != labels[0] {
			return false
		}
	}
	return true
}

func encodeNode(node treeNode) []float64 {
	row := make([]float64, nodeWidth)
	row[nodeFeature] = float64(node.featureIdx)
	row[nodeThreshold] = node.threshold
	row[nodeLeft] = float64(node.leftChild)
	row[nodeRight] = float64(node.rightChild)
	row[nodeLabel] = node.classLabel
	if node.isLeaf {
		row[nodeLeaf] = 1
	}
	return row
}

func decodeNode(row []float64) treeNode {
	return treeNode{
		featureIdx: int(row[nodeFeature]),
		threshold:  row[nodeThreshold],
		leftChild:  int(row[nodeLeft]),
		rightChild: int(row[nodeRight]),
		classLabel: row[nodeLabel],
		isLeaf:     row[nodeLeaf] == 1,
	}
}
