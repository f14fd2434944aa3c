// Package samples seeds the store with a small corpus for trying the system
// out without writing documents by hand.
package samples

import (
	"context"
	"fmt"
	"time"

	"github.com/asanoha/kotae/internal/models"
	"github.com/asanoha/kotae/internal/storage"
)

type sample struct {
	id      string
	title   string
	content string
	tags    []string
}

var corpus = []sample{
	{
		id:    "sample:ml-intro",
		title: "Introduction to Machine Learning",
		content: "Machine learning is a subset of artificial intelligence that enables " +
			"systems to learn from data. There are three main types of machine learning: " +
			"supervised learning, unsupervised learning, and reinforcement learning. " +
			"Supervised learning uses labeled data to train models that map inputs to " +
			"known outputs. Unsupervised learning finds hidden structure in unlabeled " +
			"data, such as clusters or low-dimensional representations. Reinforcement " +
			"learning trains agents through rewards received while interacting with an " +
			"environment.",
		tags: []string{"ml", "overview"},
	},
	{
		id:    "sample:supervised",
		title: "Supervised Learning",
		content: "Supervised learning algorithms learn a mapping from inputs to outputs " +
			"using labeled examples. Classification predicts discrete categories, such " +
			"as whether an email is spam. Regression predicts continuous values, such " +
			"as the price of a house. Common algorithms include linear regression, " +
			"decision trees, support vector machines, and gradient boosted ensembles. " +
			"Model quality is measured on held-out data to detect overfitting.",
		tags: []string{"ml", "supervised"},
	},
	{
		id:    "sample:unsupervised",
		title: "Unsupervised Learning",
		content: "Unsupervised learning works with unlabeled data. Clustering methods " +
			"like k-means group similar examples together. Dimensionality reduction " +
			"techniques like principal component analysis compress data while " +
			"preserving its structure. Anomaly detection flags examples that do not " +
			"fit the learned distribution, which is useful for fraud and fault " +
			"monitoring.",
		tags: []string{"ml", "unsupervised"},
	},
	{
		id:    "sample:neural-networks",
		title: "Neural Networks and Deep Learning",
		content: "Neural networks are composed of layers of connected units that " +
			"transform their inputs with learned weights and nonlinear activations. " +
			"Deep learning stacks many such layers to learn hierarchical features " +
			"directly from raw data. Convolutional networks excel at images, " +
			"recurrent and transformer architectures at sequences and language. " +
			"Training uses backpropagation and stochastic gradient descent over " +
			"large datasets.",
		tags: []string{"ml", "deep-learning"},
	},
	{
		id:    "sample:python-history",
		title: "History of the Python Language",
		content: "Python was created by Guido van Rossum and first released in 1991. " +
			"The language emphasizes readability and a large standard library. " +
			"Python 2 reached end of life in 2020, and Python 3 introduced cleaner " +
			"unicode handling and iterator-based builtins. The language is widely " +
			"used for scripting, web services, and scientific computing.",
		tags: []string{"programming", "history"},
	},
}

// Load inserts the sample corpus, overwriting earlier copies of the same
// samples. Returns the number of documents written.
func Load(ctx context.Context, store storage.Storage) (int, error) {
	now := time.Now()
	for _, s := range corpus {
		doc := &models.Document{
			ID:        s.id,
			Title:     s.title,
			Content:   s.content,
			Tags:      s.tags,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.UpsertDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("failed to load sample %s: %w", s.id, err)
		}
	}
	return len(corpus), nil
}
