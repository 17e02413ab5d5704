package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func secret(namespace, name string, data map[string][]byte) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name},
		Data:       data,
	}
}

func TestLoadCredentials(t *testing.T) {
	client := fake.NewSimpleClientset(secret("brokers", "antares", map[string][]byte{
		APIKeyField:    []byte("key"),
		APISecretField: []byte("s3cret"),
	}))

	creds, err := LoadCredentials(context.Background(), client, "brokers", "antares")
	require.NoError(t, err)
	assert.Equal(t, Credentials{APIKey: "key", APISecret: "s3cret"}, creds)
}

func TestLoadCredentials_NotFound(t *testing.T) {
	client := fake.NewSimpleClientset()

	_, err := LoadCredentials(context.Background(), client, "brokers", "antares")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestLoadCredentials_WrongNamespace(t *testing.T) {
	client := fake.NewSimpleClientset(secret("default", "antares", map[string][]byte{
		APIKeyField:    []byte("key"),
		APISecretField: []byte("s3cret"),
	}))

	_, err := LoadCredentials(context.Background(), client, "brokers", "antares")
	assert.ErrorIs(t, err, ErrSecretNotFound)
}

func TestLoadCredentials_Incomplete(t *testing.T) {
	client := fake.NewSimpleClientset(secret("brokers", "antares", map[string][]byte{
		APIKeyField: []byte("key"),
	}))

	_, err := LoadCredentials(context.Background(), client, "brokers", "antares")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSecretNotFound)
	assert.Contains(t, err.Error(), APISecretField)
}
