package dataset

// NumClasses is the size of the CIFAR-10 label vocabulary.
const NumClasses = 10

// Classes is the fixed CIFAR-10 class vocabulary, indexed by label value.
var Classes = []string{
	"airplane", "automobile", "bird", "cat", "deer",
	"dog", "frog", "horse", "ship", "truck",
}

// ClassName returns the vocabulary entry for a label index.
func ClassName(label int) string {
	if label < 0 || label >= len(Classes) {
		return "unknown"
	}
	return Classes[label]
}
