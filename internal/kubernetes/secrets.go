// Package k8s reads ANTARES credentials from a Kubernetes Secret so the
// verification command can run as a Job next to the broker deployment without
// credentials in its environment.
package k8s

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/u2takey/go-utils/filesystem/homedir"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Keys expected in the Secret's data.
const (
	APIKeyField    = "api_key"
	APISecretField = "api_secret"
)

var ErrSecretNotFound = errors.New("credentials secret not found")

type Credentials struct {
	APIKey    string
	APISecret string
}

// NewClientset prefers in-cluster config and falls back to kubeconfig, which
// defaults to ~/.kube/config when empty.
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		if kubeconfig == "" {
			if home := homedir.HomeDir(); home != "" {
				kubeconfig = filepath.Join(home, ".kube", "config")
			}
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}

// LoadCredentials reads api_key and api_secret from namespace/name.
func LoadCredentials(ctx context.Context, client kubernetes.Interface, namespace, name string) (Credentials, error) {
	secret, err := client.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return Credentials{}, fmt.Errorf("%s/%s: %w", namespace, name, ErrSecretNotFound)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("get secret %s/%s: %w", namespace, name, err)
	}

	creds := Credentials{
		APIKey:    string(secret.Data[APIKeyField]),
		APISecret: string(secret.Data[APISecretField]),
	}
	if creds.APIKey == "" || creds.APISecret == "" {
		return Credentials{}, fmt.Errorf("secret %s/%s must contain %s and %s", namespace, name, APIKeyField, APISecretField)
	}
	return creds, nil
}
