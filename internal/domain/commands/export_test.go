package commands

// DescribeNext exports describeNext for testing.
var DescribeNext = describeNext //nolint:gochecknoglobals // test export
