package kubeutil

import (
	"log"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// ConnectToK8s detects a *kubernetes.Clientset.
//
// kubeconfig is searched, in order of increasing priority, from
//
// - `~/.kube/config`
//
// - the environment variable `KUBECONFIG`
//
// - the explicit path argument (may be empty)
//
// When no usable file is found it falls back to in-cluster config.
//
// *CAUTION*: if nothing works, the process exits.
func ConnectToK8s(explicitPath string) *kubernetes.Clientset {
	kubeconfig := ""

	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}
	if k := os.Getenv("KUBECONFIG"); k != "" {
		kubeconfig = k
	}
	if explicitPath != "" {
		kubeconfig = explicitPath
	}

	if kubeconfig != "" {
		stat, err := os.Stat(kubeconfig)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			kubeconfig = ""
		}
	}

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		log.Fatalln(err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		log.Fatalln(err)
	}
	return clientset
}
