package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/ashureev/quizlabs/internal/quiz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type staticSource struct {
	catalog *quiz.Catalog
}

func (s staticSource) Catalog() *quiz.Catalog { return s.catalog }

func testCatalog() *quiz.Catalog {
	return quiz.NewCatalog([]quiz.Quiz{
		{Title: "Animals", Questions: []quiz.Question{
			{Prompt: "Whale mammal?", Answers: []quiz.Answer{
				{Content: "yes", IsCorrect: true},
				{Content: "no"},
			}},
		}},
		{Title: "Capitals"},
	})
}

func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	app := New(nil, staticSource{catalog: testCatalog()}, "bufnet")
	go func() {
		_ = app.Serve(lis)
	}()
	t.Cleanup(app.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestListTitles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewCatalogClient(startServer(t))
	titles, err := client.ListTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Animals", "Capitals"}, titles)
}

func TestDescribeQuiz(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewCatalogClient(startServer(t))
	out, err := client.DescribeQuiz(ctx, "Animals")
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, "Animals", m["title"])
	assert.Equal(t, float64(1), m["total"])

	questions := m["questions"].([]interface{})
	require.Len(t, questions, 1)
	first := questions[0].(map[string]interface{})
	assert.Equal(t, "Whale mammal?", first["question"])
	assert.Equal(t, []interface{}{"yes", "no"}, first["answers"])
	assert.NotContains(t, first, "value")
}

func TestDescribeQuiz_Errors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := NewCatalogClient(startServer(t))

	_, err := client.DescribeQuiz(ctx, "Sports")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.DescribeQuiz(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHealth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(startServer(t)).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
