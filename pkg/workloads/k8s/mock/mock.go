package mock

import (
	"context"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"

	"github.com/storeward/storeward/pkg/utils/mocks"
	"github.com/storeward/storeward/pkg/workloads/k8s"
)

type NamespacedQuery struct {
	Namespace string
	Selector  string
}

type NamedQuery struct {
	Namespace string
	Name      string
}

type K8sClient struct {
	Impl struct {
		FindPods        func(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
		GetJob          func(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
		FindIngresses   func(ctx context.Context, namespace string, labelSelector string) ([]kubenet.Ingress, error)
		GetNamespace    func(ctx context.Context, name string) (*kubecore.Namespace, error)
		DeleteNamespace func(ctx context.Context, name string) error
	}
	Calls struct {
		FindPods        mocks.CallLog[NamespacedQuery]
		GetJob          mocks.CallLog[NamedQuery]
		FindIngresses   mocks.CallLog[NamespacedQuery]
		GetNamespace    mocks.CallLog[string]
		DeleteNamespace mocks.CallLog[string]
	}
}

var _ k8s.K8sClient = &K8sClient{}

func NewK8sClient() *K8sClient {
	return &K8sClient{}
}

func (m *K8sClient) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	m.Calls.FindPods = append(m.Calls.FindPods, NamespacedQuery{Namespace: namespace, Selector: labelSelector})
	if m.Impl.FindPods != nil {
		return m.Impl.FindPods(ctx, namespace, labelSelector)
	}
	panic("it should not be called")
}

func (m *K8sClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	m.Calls.GetJob = append(m.Calls.GetJob, NamedQuery{Namespace: namespace, Name: name})
	if m.Impl.GetJob != nil {
		return m.Impl.GetJob(ctx, namespace, name)
	}
	panic("it should not be called")
}

func (m *K8sClient) FindIngresses(ctx context.Context, namespace string, labelSelector string) ([]kubenet.Ingress, error) {
	m.Calls.FindIngresses = append(m.Calls.FindIngresses, NamespacedQuery{Namespace: namespace, Selector: labelSelector})
	if m.Impl.FindIngresses != nil {
		return m.Impl.FindIngresses(ctx, namespace, labelSelector)
	}
	panic("it should not be called")
}

func (m *K8sClient) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	m.Calls.GetNamespace = append(m.Calls.GetNamespace, name)
	if m.Impl.GetNamespace != nil {
		return m.Impl.GetNamespace(ctx, name)
	}
	panic("it should not be called")
}

func (m *K8sClient) DeleteNamespace(ctx context.Context, name string) error {
	m.Calls.DeleteNamespace = append(m.Calls.DeleteNamespace, name)
	if m.Impl.DeleteNamespace != nil {
		return m.Impl.DeleteNamespace(ctx, name)
	}
	panic("it should not be called")
}

// Probe is a mock of the k8s.Probe interface, for tests above the cluster
// query layer (the provisioning worker).
type Probe struct {
	Impl struct {
		PodsReady       func(ctx context.Context, namespace string, labelSelector string) (k8s.PodsSummary, error)
		JobStatus       func(ctx context.Context, namespace string, name string) (k8s.JobStatus, error)
		IngressHost     func(ctx context.Context, namespace string, labelSelector string) (string, error)
		NamespaceExists func(ctx context.Context, namespace string) (bool, error)
		DeleteNamespace func(ctx context.Context, namespace string) error
	}
	Calls struct {
		PodsReady       mocks.CallLog[NamespacedQuery]
		JobStatus       mocks.CallLog[NamedQuery]
		IngressHost     mocks.CallLog[NamespacedQuery]
		NamespaceExists mocks.CallLog[string]
		DeleteNamespace mocks.CallLog[string]
	}
}

var _ k8s.Probe = &Probe{}

func NewProbe() *Probe {
	return &Probe{}
}

func (m *Probe) PodsReady(ctx context.Context, namespace string, labelSelector string) (k8s.PodsSummary, error) {
	m.Calls.PodsReady = append(m.Calls.PodsReady, NamespacedQuery{Namespace: namespace, Selector: labelSelector})
	if m.Impl.PodsReady != nil {
		return m.Impl.PodsReady(ctx, namespace, labelSelector)
	}
	panic("it should not be called")
}

func (m *Probe) JobStatus(ctx context.Context, namespace string, name string) (k8s.JobStatus, error) {
	m.Calls.JobStatus = append(m.Calls.JobStatus, NamedQuery{Namespace: namespace, Name: name})
	if m.Impl.JobStatus != nil {
		return m.Impl.JobStatus(ctx, namespace, name)
	}
	panic("it should not be called")
}

func (m *Probe) IngressHost(ctx context.Context, namespace string, labelSelector string) (string, error) {
	m.Calls.IngressHost = append(m.Calls.IngressHost, NamespacedQuery{Namespace: namespace, Selector: labelSelector})
	if m.Impl.IngressHost != nil {
		return m.Impl.IngressHost(ctx, namespace, labelSelector)
	}
	panic("it should not be called")
}

func (m *Probe) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	m.Calls.NamespaceExists = append(m.Calls.NamespaceExists, namespace)
	if m.Impl.NamespaceExists != nil {
		return m.Impl.NamespaceExists(ctx, namespace)
	}
	panic("it should not be called")
}

func (m *Probe) DeleteNamespace(ctx context.Context, namespace string) error {
	m.Calls.DeleteNamespace = append(m.Calls.DeleteNamespace, namespace)
	if m.Impl.DeleteNamespace != nil {
		return m.Impl.DeleteNamespace(ctx, namespace)
	}
	panic("it should not be called")
}
