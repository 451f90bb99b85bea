package calculation

// Evaluate reduces the operands left to right with the request's operation.
// A Request built by Validate always evaluates.
func Evaluate(req Request) float64 {
	acc := req.operands[0]
	for _, x := range req.operands[1:] {
		acc = req.operation.apply(acc, x)
	}
	return acc
}
