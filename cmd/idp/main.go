// idp is the inclusive design assessment service.
//
// It evaluates product artifacts against accessibility rule packs under a
// physical scenario (reach, strength, visual contrast), scores them with an
// inclusivity index and answers anthropometric percentile queries.
//
// Usage:
//
//	# Start the HTTP API
//	idp serve --config idp.yaml
//
//	# Evaluate one artifact offline and print the result
//	idp evaluate --artifact panel --scenario kiosk --rulepack core
//
//	# Validate rule pack files
//	idp lint rulepacks/
//
//	# Look up a percentile in a dataset
//	idp percentile ansur --metric stature --percentile 95
//
//	# Delete runs past the retention period
//	idp prune
package main

func main() {
	Execute()
}
