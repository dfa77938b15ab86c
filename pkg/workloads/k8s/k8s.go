package k8s

import (
	"context"
	"errors"
	"fmt"

	kubebatch "k8s.io/api/batch/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
)

// subset of k8s.Clientset: read-only queries plus the one teardown
// operation (namespace delete). The probe never creates or mutates
// workloads; that is Helm's job.
type K8sClient interface {
	FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
	GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error)
	FindIngresses(ctx context.Context, namespace string, labelSelector string) ([]kubenet.Ingress, error)
	GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error)
	DeleteNamespace(ctx context.Context, name string) error
}

// A wrapper for the type k8s.Clientset; because it does not prefer method
// chain-style invocations of that type.
type k8sClient struct {
	client *k8s.Clientset
}

var _ K8sClient = &k8sClient{}

func WrapK8sClient(c *k8s.Clientset) K8sClient {
	return &k8sClient{client: c}
}

func (k *k8sClient) FindPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	resp, err := k.client.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetJob(ctx context.Context, namespace string, name string) (*kubebatch.Job, error) {
	return k.client.BatchV1().Jobs(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) FindIngresses(ctx context.Context, namespace string, labelSelector string) ([]kubenet.Ingress, error) {
	resp, err := k.client.NetworkingV1().Ingresses(namespace).List(ctx, kubeapimeta.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	return k.client.CoreV1().Namespaces().Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) DeleteNamespace(ctx context.Context, name string) error {
	return k.client.CoreV1().Namespaces().Delete(ctx, name, kubeapimeta.DeleteOptions{})
}

// TransientError marks a cluster query which failed for a reason that a
// later tick may not see: API server hiccup, network partition, throttle.
// The poll loop treats a transient tick as a no-op.
type TransientError struct {
	Cause error
}

func (e TransientError) Error() string {
	return fmt.Sprintf("transient cluster error: %s", e.Cause)
}

func (e TransientError) Unwrap() error {
	return e.Cause
}

func IsTransient(err error) bool {
	return errors.As(err, &TransientError{})
}

// transient wraps any API error that is not a definite not-found answer.
func transient(err error) error {
	if kubeerr.IsNotFound(err) {
		return err
	}
	return TransientError{Cause: err}
}

// ReleaseSelector is the label every chart resource of one store carries.
func ReleaseSelector(release string) string {
	return "app.kubernetes.io/instance=" + release
}

// PodsSummary is a snapshot of the store's workload pods.
type PodsSummary struct {
	// Ready counts pods whose containers all report ready.
	Ready int

	// Total excludes pods that ran to completion (setup job pods).
	Total int

	// AnyFailed means a pod is terminally broken; waiting longer will not
	// help. Reason names the first observed breakage.
	AnyFailed bool
	Reason    string
}

type JobStatus string

const (
	// no pods of the job have started (or the job is not created yet).
	JobPending JobStatus = "Pending"

	// at least one pod has started and the job has not completed.
	JobRunning JobStatus = "Running"

	JobSucceeded JobStatus = "Succeeded"
	JobFailed    JobStatus = "Failed"
)

// Probe is the read-only surface of the cluster the provisioning worker
// polls. Every method classifies API failures as TransientError unless the
// answer is a definite "it is not there".
type Probe interface {
	PodsReady(ctx context.Context, namespace string, labelSelector string) (PodsSummary, error)

	// JobStatus reports the setup job. A job that does not exist (yet) is
	// JobPending: charts create it late and absence is not failure.
	JobStatus(ctx context.Context, namespace string, name string) (JobStatus, error)

	// IngressHost returns the first routed hostname, or "" when no
	// ingress (or no rule) exists yet.
	IngressHost(ctx context.Context, namespace string, labelSelector string) (string, error)

	NamespaceExists(ctx context.Context, namespace string) (bool, error)

	// DeleteNamespace tears the namespace down. Deleting an absent
	// namespace is success.
	DeleteNamespace(ctx context.Context, namespace string) error
}

// a pod is considered crash-looping for good once it restarted this often.
const crashLoopRestartLimit = 3

type probe struct {
	client K8sClient
}

var _ Probe = &probe{}

func AttachProbe(client K8sClient) Probe {
	return &probe{client: client}
}

func (p *probe) PodsReady(ctx context.Context, namespace string, labelSelector string) (PodsSummary, error) {
	pods, err := p.client.FindPods(ctx, namespace, labelSelector)
	if err != nil {
		return PodsSummary{}, transient(err)
	}

	summary := PodsSummary{}
	for _, pod := range pods {
		if pod.Status.Phase == kubecore.PodSucceeded {
			// ran to completion; not part of the serving workload.
			continue
		}

		summary.Total += 1

		if pod.Status.Phase == kubecore.PodFailed {
			summary.fail(fmt.Sprintf("pod %s: %s", pod.Name, pod.Status.Phase))
			continue
		}

		allReady := len(pod.Status.ContainerStatuses) > 0
		for _, c := range pod.Status.ContainerStatuses {
			if !c.Ready {
				allReady = false
			}
			if w := c.State.Waiting; w != nil {
				switch w.Reason {
				case "ImagePullBackOff", "ErrImagePull":
					summary.fail(fmt.Sprintf("pod %s: %s", pod.Name, w.Reason))
				case "CrashLoopBackOff":
					if c.RestartCount >= crashLoopRestartLimit {
						summary.fail(fmt.Sprintf(
							"pod %s: CrashLoopBackOff (restarts: %d)", pod.Name, c.RestartCount,
						))
					}
				}
			}
			if term := c.State.Terminated; term != nil && term.ExitCode != 0 &&
				c.RestartCount >= crashLoopRestartLimit {
				summary.fail(fmt.Sprintf(
					"pod %s: container exited with code %d (restarts: %d)",
					pod.Name, term.ExitCode, c.RestartCount,
				))
			}
		}
		if allReady {
			summary.Ready += 1
		}
	}
	return summary, nil
}

func (s *PodsSummary) fail(reason string) {
	if s.AnyFailed {
		return // keep the first observed reason
	}
	s.AnyFailed = true
	s.Reason = reason
}

func (p *probe) JobStatus(ctx context.Context, namespace string, name string) (JobStatus, error) {
	job, err := p.client.GetJob(ctx, namespace, name)
	if err != nil {
		if kubeerr.IsNotFound(err) {
			return JobPending, nil
		}
		return JobPending, transient(err)
	}

	for _, cond := range job.Status.Conditions {
		if cond.Status != kubecore.ConditionTrue {
			continue
		}
		switch cond.Type {
		case kubebatch.JobComplete:
			return JobSucceeded, nil
		case kubebatch.JobFailed:
			return JobFailed, nil
		}
	}

	if job.Status.Active > 0 || job.Status.Succeeded > 0 || job.Status.Failed > 0 {
		return JobRunning, nil
	}
	return JobPending, nil
}

func (p *probe) IngressHost(ctx context.Context, namespace string, labelSelector string) (string, error) {
	ingresses, err := p.client.FindIngresses(ctx, namespace, labelSelector)
	if err != nil {
		return "", transient(err)
	}

	for _, ing := range ingresses {
		for _, rule := range ing.Spec.Rules {
			if rule.Host != "" {
				return rule.Host, nil
			}
		}
	}
	return "", nil
}

func (p *probe) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	if _, err := p.client.GetNamespace(ctx, namespace); err != nil {
		if kubeerr.IsNotFound(err) {
			return false, nil
		}
		return false, transient(err)
	}
	return true, nil
}

func (p *probe) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := p.client.DeleteNamespace(ctx, namespace); err != nil {
		if kubeerr.IsNotFound(err) {
			return nil
		}
		return transient(err)
	}
	return nil
}
